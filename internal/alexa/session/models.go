package session

// Request and response shapes for the auth flow. Only the fields the
// manager actually reads are modeled.

type webSiteCookie struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

type registerAppRequest struct {
	RequestedExtensions []string         `json:"requested_extensions"`
	Cookies             registerCookies  `json:"cookies"`
	RegistrationData    registrationData `json:"registration_data"`
	AuthData            authData         `json:"auth_data"`
	UserContextMap      userContextMap   `json:"user_context_map"`
	RequestedTokenType  []string         `json:"requested_token_type"`
}

type registerCookies struct {
	WebsiteCookies []webSiteCookie `json:"website_cookies"`
	Domain         string          `json:"domain"`
}

type registrationData struct {
	Domain          string `json:"domain"`
	AppVersion      string `json:"app_version"`
	DeviceType      string `json:"device_type"`
	DeviceName      string `json:"device_name"`
	OSVersion       string `json:"os_version"`
	DeviceSerial    string `json:"device_serial"`
	DeviceModel     string `json:"device_model"`
	AppName         string `json:"app_name"`
	SoftwareVersion string `json:"software_version"`
}

type authData struct {
	AccessToken string `json:"access_token"`
}

type userContextMap struct {
	FRC string `json:"frc"`
}

type registerAppResponse struct {
	Response *struct {
		Success *struct {
			Extensions *struct {
				DeviceInfo *struct {
					DeviceName string `json:"device_name"`
				} `json:"device_info"`
			} `json:"extensions"`
			Tokens *struct {
				Bearer *struct {
					AccessToken  string `json:"access_token"`
					RefreshToken string `json:"refresh_token"`
					ExpiresIn    string `json:"expires_in"`
				} `json:"bearer"`
				MacDMS *struct {
					DevicePrivateKey string `json:"device_private_key"`
					AdpToken         string `json:"adp_token"`
				} `json:"mac_dms"`
			} `json:"tokens"`
		} `json:"success"`
	} `json:"response"`
}

type exchangeTokenResponse struct {
	Response *struct {
		Tokens *struct {
			Cookies map[string][]exchangeCookie `json:"cookies"`
		} `json:"tokens"`
	} `json:"response"`
}

type exchangeCookie struct {
	Name   string `json:"Name"`
	Value  string `json:"Value"`
	Path   string `json:"Path"`
	Secure *bool  `json:"Secure"`
}

type renewTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   string `json:"expires_in"`
}

// BootstrapAuthentication is the identity block of the bootstrap
// endpoint response.
type BootstrapAuthentication struct {
	Authenticated bool   `json:"authenticated"`
	CustomerID    string `json:"customerId"`
	CustomerName  string `json:"customerName"`
	CustomerEmail string `json:"customerEmail"`
}

type bootstrapResult struct {
	Authentication *BootstrapAuthentication `json:"authentication"`
}

type usersMeResponse struct {
	MarketPlaceDomainName string `json:"marketPlaceDomainName"`
	FullName              string `json:"fullName"`
	ID                    string `json:"id"`
}
