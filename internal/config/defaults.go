package config

// Default returns a Config populated with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Site: "amazon.com",
		},
		Defaults: DefaultsConfig{
			TTSVolume:      -1,
			StandardVolume: -1,
		},
		Dispatch: DispatchConfig{
			HistorySize: 10,
		},
		Watch: WatchConfig{
			RefreshInterval: 2000,
		},
	}
}

// ApplyDefaults fills in zero values with sensible defaults.
func (c *Config) ApplyDefaults() {
	d := Default()

	if c.Account.Site == "" {
		c.Account.Site = d.Account.Site
	}

	// Volume zero is a valid request, the unset marker is negative.
	// TOML cannot express "absent int" so zero means unset here too.
	if c.Defaults.TTSVolume == 0 {
		c.Defaults.TTSVolume = d.Defaults.TTSVolume
	}
	if c.Defaults.StandardVolume == 0 {
		c.Defaults.StandardVolume = d.Defaults.StandardVolume
	}

	if c.Dispatch.HistorySize == 0 {
		c.Dispatch.HistorySize = d.Dispatch.HistorySize
	}

	if c.Watch.RefreshInterval == 0 {
		c.Watch.RefreshInterval = d.Watch.RefreshInterval
	}
}
