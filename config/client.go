package config

import (
	"fmt"

	"github.com/joho/godotenv"
)

// ClientConfig holds the terminal client's settings. Command-line flags
// override these values.
type ClientConfig struct {
	ServerURL    string
	AllowedNames []string
	Latitude     string
	Longitude    string
	StatePath    string
	LogPath      string
}

// LoadClient reads the client settings from the environment after loading an
// optional .env file. It stays silent: the terminal belongs to the UI.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	cfg := &ClientConfig{
		ServerURL:    getEnv("FRIENDMAP_SERVER", "http://localhost:8080"),
		AllowedNames: getEnvAsList("FRIENDMAP_ALLOWED_NAMES", DefaultAllowedNames),
		Latitude:     getEnv("FRIENDMAP_LAT", ""),
		Longitude:    getEnv("FRIENDMAP_LNG", ""),
		StatePath:    getEnv("FRIENDMAP_STATE", ""),
		LogPath:      getEnv("FRIENDMAP_LOG", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("FRIENDMAP_SERVER is required")
	}
	if len(c.AllowedNames) == 0 {
		return fmt.Errorf("FRIENDMAP_ALLOWED_NAMES must not be empty")
	}
	return nil
}
