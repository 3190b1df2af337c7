package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:            "info",
			PollIntervalSeconds: 1,
		},
		Backend: BackendConfig{
			Type: "keybase",
		},
		Teams: map[string][]string{},
		Help: HelpConfig{
			Pattern: `^\.help`,
			Trigger: ".help",
		},
		Commands: CommandsConfig{
			Pong:            "pong!",
			ProfanityFilter: true,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.keybot/history.db",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Host:     "127.0.0.1",
			Port:     9180,
			Endpoint: "/metrics",
		},
	}
}
