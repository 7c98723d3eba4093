package session

import (
	"bufio"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// blobVersion tags the serialized session format. Blobs with any
	// other version are treated as absent.
	blobVersion = "7"

	// registeredDeviceType identifies the pseudo-device this client
	// registers as.
	registeredDeviceType = "A2IVLV5VM2W81"
)

// State holds the session identity, credentials and cookies. It has no
// behavior beyond (de)serialization; the Manager owns all mutation.
type State struct {
	FRC               string // install fingerprint, stable per installation
	Serial            string
	DeviceID          string
	RefreshToken      string
	Site              string
	DeviceName        string
	AccountCustomerID string
	LoginTime         *time.Time

	Jar *Jar
}

// NewState creates a fresh State with randomly generated identity
// fields and an empty cookie jar.
func NewState() *State {
	frc := make([]byte, 313)
	_, _ = rand.Read(frc)

	serial := make([]byte, 16)
	_, _ = rand.Read(serial)

	device := make([]byte, 16)
	_, _ = rand.Read(device)
	deviceID := strings.ToUpper(hex.EncodeToString(device)) + "#" + registeredDeviceType

	return &State{
		FRC:        base64.StdEncoding.EncodeToString(frc),
		Serial:     hex.EncodeToString(serial),
		DeviceID:   hex.EncodeToString([]byte(deviceID)),
		Site:       "amazon.com",
		DeviceName: "Unknown",
		Jar:        NewJar(),
	}
}

// Serialize writes the session to the versioned line-oriented blob
// format. It returns the empty string when the session is not logged in.
func (s *State) Serialize() string {
	if s.RefreshToken == "" || s.LoginTime == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(blobVersion + "\n")
	b.WriteString(s.FRC + "\n")
	b.WriteString(s.Serial + "\n")
	b.WriteString(s.DeviceID + "\n")
	b.WriteString(s.RefreshToken + "\n")
	b.WriteString(s.Site + "\n")
	b.WriteString(s.DeviceName + "\n")
	b.WriteString(s.AccountCustomerID + "\n")
	b.WriteString(strconv.FormatInt(s.LoginTime.UnixMilli(), 10) + "\n")

	cookies := s.Jar.All()
	b.WriteString(strconv.Itoa(len(cookies)) + "\n")
	for i := range cookies {
		writeCookie(&b, &cookies[i])
	}
	return b.String()
}

// Deserialize parses a blob produced by Serialize, replacing the state
// and cookie jar. It fails closed: on any error the state is unchanged.
func (s *State) Deserialize(data string) error {
	r := &lineReader{scanner: bufio.NewScanner(strings.NewReader(data))}
	r.scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if v := r.next(); v != blobVersion {
		return fmt.Errorf("unsupported session format version %q", v)
	}

	parsed := State{
		FRC:               r.next(),
		Serial:            r.next(),
		DeviceID:          r.next(),
		RefreshToken:      r.next(),
		Site:              r.next(),
		DeviceName:        r.next(),
		AccountCustomerID: r.next(),
	}

	millis, err := strconv.ParseInt(r.next(), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid login time: %w", err)
	}
	loginTime := time.UnixMilli(millis)
	parsed.LoginTime = &loginTime

	count, err := strconv.Atoi(r.next())
	if err != nil {
		return fmt.Errorf("invalid cookie count: %w", err)
	}
	cookies := make([]Cookie, 0, count)
	for i := 0; i < count; i++ {
		c, err := readCookie(r)
		if err != nil {
			return fmt.Errorf("cookie %d: %w", i, err)
		}
		cookies = append(cookies, c)
	}
	if r.err != nil {
		return r.err
	}

	s.FRC = parsed.FRC
	s.Serial = parsed.Serial
	s.DeviceID = parsed.DeviceID
	s.RefreshToken = parsed.RefreshToken
	s.Site = parsed.Site
	s.DeviceName = parsed.DeviceName
	s.AccountCustomerID = parsed.AccountCustomerID
	s.LoginTime = parsed.LoginTime
	s.Jar.Replace(cookies)

	return nil
}

// Each cookie field is written as a present/absent-tagged pair of
// lines so empty values survive the round trip.
func writeCookie(b *strings.Builder, c *Cookie) {
	writeTagged(b, c.Name, true)
	writeTagged(b, c.Value, true)
	writeTagged(b, c.Comment, c.Comment != "")
	writeTagged(b, c.CommentURL, c.CommentURL != "")
	writeTagged(b, c.Domain, c.Domain != "")
	writeTagged(b, strconv.FormatInt(c.MaxAge, 10), true)
	writeTagged(b, c.Path, c.Path != "")
	writeTagged(b, c.Portlist, c.Portlist != "")
	writeTagged(b, strconv.Itoa(c.Version), true)
	writeTagged(b, strconv.FormatBool(c.Secure), true)
	writeTagged(b, strconv.FormatBool(c.Discard), true)
}

func writeTagged(b *strings.Builder, value string, present bool) {
	if !present {
		b.WriteString("0\n")
		return
	}
	b.WriteString("1\n")
	b.WriteString(value + "\n")
}

func readCookie(r *lineReader) (Cookie, error) {
	c := Cookie{
		Name:       r.tagged(),
		Value:      r.tagged(),
		Comment:    r.tagged(),
		CommentURL: r.tagged(),
		Domain:     r.tagged(),
	}
	maxAge, err := strconv.ParseInt(r.tagged(), 10, 64)
	if err != nil {
		return c, fmt.Errorf("invalid max age: %w", err)
	}
	c.MaxAge = maxAge
	c.Path = r.tagged()
	c.Portlist = r.tagged()
	version, err := strconv.Atoi(r.tagged())
	if err != nil {
		return c, fmt.Errorf("invalid version: %w", err)
	}
	c.Version = version
	c.Secure = r.tagged() == "true"
	c.Discard = r.tagged() == "true"
	return c, r.err
}

type lineReader struct {
	scanner *bufio.Scanner
	err     error
}

func (r *lineReader) next() string {
	if r.err != nil {
		return ""
	}
	if !r.scanner.Scan() {
		r.err = fmt.Errorf("unexpected end of session blob")
		return ""
	}
	return r.scanner.Text()
}

func (r *lineReader) tagged() string {
	if r.next() == "1" {
		return r.next()
	}
	return ""
}
