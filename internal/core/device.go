package core

// Family indicates the broad hardware family of a device.
type Family string

const (
	FamilyEcho    Family = "ECHO"
	FamilyKnight  Family = "KNIGHT"
	FamilyRook    Family = "ROOK"
	FamilyTablet  Family = "TABLET"
	FamilyApp     Family = "VOX"
	FamilyUnknown Family = "UNKNOWN"
)

// Device represents a cloud-connected speaker.
type Device struct {
	Serial          string   `json:"serialNumber"`
	Type            string   `json:"deviceType"`
	Name            string   `json:"accountName"`
	Family          Family   `json:"deviceFamily"`
	OwnerCustomerID string   `json:"deviceOwnerCustomerId"`
	SoftwareVersion string   `json:"softwareVersion"`
	Online          bool     `json:"online"`
	Capabilities    []string `json:"capabilities"`
}

// HasCapability reports whether the device advertises the given capability.
func (d *Device) HasCapability(capability string) bool {
	for _, c := range d.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
