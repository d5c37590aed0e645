package config

type Config struct {
	Server    ServerConfig
	Inference InferenceConfig
	Storage   StorageConfig
	Log       LogConfig
}

type ServerConfig struct {
	Port int
}

type InferenceConfig struct {
	Endpoint       string
	APIKey         string
	TimeoutSeconds int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4200,
		},
		Inference: InferenceConfig{
			TimeoutSeconds: 45,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and then
// applies environment overrides.
//
// On macOS the backend is UserDefaults (domain: com.escuta.app); on
// Linux it is a JSON file at $XDG_CONFIG_HOME/escuta/config.json.
// Environment variables (ESCUTA_*) override backend values on all
// platforms. The inference endpoint is optional: without one, every
// report is produced by the offline path.
func Load() (Config, error) {
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()
	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}
