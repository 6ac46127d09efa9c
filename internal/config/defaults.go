package config

// Default returns the baseline configuration applied before any file values.
func Default() Config {
	dataDir, _ := ExpandPath("~/.local/share/tubesync")
	logDir, _ := ExpandPath("~/.local/share/tubesync/logs")
	return Config{
		Server: Server{
			BaseURL:  "http://localhost:8859",
			PushAddr: "localhost:8860",
		},
		Sync: Sync{
			PollIntervalMS:      500,
			ConnectAttempts:     3,
			ConnectDelaySeconds: 2,
			RetryAttempts:       3,
			RetryDelaySeconds:   1,
		},
		Paths: Paths{
			DataDir: dataDir,
			LogDir:  logDir,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
		Notifications: Notifications{
			Desktop:          true,
			DismissBroadcast: true,
		},
	}
}
