// Package config provides configuration management for the posting converter.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config represents the application configuration.
type Config struct {
	GDPdU     GDPdUConfig
	Beancount BeancountConfig
	Export    ExportConfig
	Debug     bool
}

// GDPdUConfig represents the input and mapping configuration.
type GDPdUConfig struct {
	// MappingFile is the YAML mapping. Empty selects the built-in tables.
	MappingFile string
	Encoding    string
	// Location is the IANA time zone the export timestamps are recorded in.
	Location string
}

// BeancountConfig represents Beancount-related configuration.
type BeancountConfig struct {
	Root     string
	Currency string
}

// ExportConfig represents the export journal configuration.
type ExportConfig struct {
	// DBPath enables the SQLite export journal when set.
	DBPath string
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config := &Config{
		GDPdU: GDPdUConfig{
			MappingFile: os.Getenv("GDPDU_MAPPING_FILE"),
			Encoding:    getEnvOrDefault("GDPDU_ENCODING", "latin-1"),
			Location:    getEnvOrDefault("GDPDU_TIMEZONE", "UTC"),
		},
		Beancount: BeancountConfig{
			Root:     getEnvOrDefault("BEANCOUNT_ROOT", "./beancount"),
			Currency: os.Getenv("GDPDU_CURRENCY"),
		},
		Export: ExportConfig{
			DBPath: os.Getenv("EXPORT_DB_PATH"),
		},
		Debug: os.Getenv("DEBUG") == "true",
	}

	return config, nil
}

// Validate validates the configuration.
// It checks if all required fields are set.
func (c *Config) Validate(required ...[]string) error {
	var missing []string

	for _, path := range required {
		if len(path) < 2 {
			continue
		}

		var value string
		switch path[0] {
		case "gdpdu":
			switch path[1] {
			case "mappingFile":
				value = c.GDPdU.MappingFile
			case "encoding":
				value = c.GDPdU.Encoding
			case "location":
				value = c.GDPdU.Location
			}
		case "beancount":
			switch path[1] {
			case "root":
				value = c.Beancount.Root
			case "currency":
				value = c.Beancount.Currency
			}
		case "export":
			if path[1] == "dbPath" {
				value = c.Export.DBPath
			}
		}

		if value == "" {
			missing = append(missing, strings.Join(path, "."))
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}

	return nil
}

// getEnvOrDefault returns the value of the environment variable or a default value if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
