package internal

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Config holds settings read from the environment
type Config struct {
	// Agent endpoint
	AgentEndpoint string        `env:"SNOWFLAKE_AGENT_API_ENDPOINT"`
	PATToken      string        `env:"SNOWFLAKE_PAT_TOKEN"`
	AgentTimeout  time.Duration `env:"AGENT_TIMEOUT" envDefault:"300s"`

	// Response filtering
	RemoveSQL bool `env:"REMOVE_SQL_FROM_RESPONSE" envDefault:"false"`

	// Relay
	ListenAddr  string   `env:"RELAY_LISTEN_ADDR" envDefault:":8000"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	// Presentation
	DisplayConfigPath string `env:"DISPLAY_CONFIG"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"info"`
}

// ErrMissingEndpoint is returned when no agent endpoint is configured
var ErrMissingEndpoint = errors.New("agent endpoint is not configured (set SNOWFLAKE_AGENT_API_ENDPOINT or --endpoint)")

// LoadConfig loads envFile if it exists, then parses the environment.
// Variables already set in the environment take precedence over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
			}
			LogDebug("no env file at %s", envFile)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings needed to reach the agent
func (c *Config) Validate() error {
	if c.AgentEndpoint == "" {
		return ErrMissingEndpoint
	}
	if c.AgentTimeout < 0 {
		return fmt.Errorf("invalid agent timeout %s", c.AgentTimeout)
	}
	return nil
}

// Display returns the display config: defaults, then the YAML overrides
// file if one is configured
func (c *Config) Display() (DisplayConfig, error) {
	overrides, err := c.DisplayOverrides()
	if err != nil {
		return DefaultDisplayConfig(), err
	}
	return overrides.Apply(DefaultDisplayConfig()), nil
}

// DisplayOverrides returns the overrides of the display file, none when no
// file is configured
func (c *Config) DisplayOverrides() (DisplayOverrides, error) {
	if c.DisplayConfigPath == "" {
		return DisplayOverrides{}, nil
	}
	return LoadDisplayOverrides(c.DisplayConfigPath)
}

// Transport builds the HTTP transport for the configured endpoint
func (c *Config) Transport() *HTTPTransport {
	return NewHTTPTransport(c.AgentEndpoint, c.PATToken, c.AgentTimeout)
}
