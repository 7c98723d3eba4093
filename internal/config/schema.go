package config

// Config is the root configuration structure.
type Config struct {
	Account  AccountConfig  `toml:"account"`
	Defaults DefaultsConfig `toml:"defaults"`
	Dispatch DispatchConfig `toml:"dispatch"`
	Watch    WatchConfig    `toml:"watch"`
	Log      LogConfig      `toml:"log"`
}

// AccountConfig holds remote account settings.
type AccountConfig struct {
	// Site is the regional retail domain, e.g. "amazon.com" or
	// "amazon.de". Empty means the domain stored in the session, or
	// amazon.com for a fresh login.
	Site        string `toml:"site"`
	SessionFile string `toml:"session_file"`
}

// DefaultsConfig holds default command settings.
type DefaultsConfig struct {
	Device         string `toml:"device"`
	TTSVolume      int    `toml:"tts_volume"`
	StandardVolume int    `toml:"standard_volume"`
}

// DispatchConfig holds command dispatch tuning.
type DispatchConfig struct {
	HistorySize int `toml:"history_size"`
}

// WatchConfig holds settings for the live status view.
type WatchConfig struct {
	RefreshInterval int `toml:"refresh_interval"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Verbose bool   `toml:"verbose"`
	File    string `toml:"file"`
}
