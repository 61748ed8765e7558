package main

import (
	"os"
	"time"

	"github.com/urfave/cli/v3"
)

// Default values from environment variables
var (
	defaultServer  = getEnvOrDefault("QUILL_SERVER", "http://localhost:8080")
	defaultToken   = getEnvOrDefault("QUILL_TOKEN", "")
	defaultContext = getEnvOrDefault("QUILL_CONTEXT", "")
	defaultTimeout = getEnvDuration("QUILL_TIMEOUT", 2*time.Minute)
)

// Config carries the resolved command-line configuration
type Config struct {
	// Connection
	Server  string
	Token   string
	Timeout time.Duration

	// Context management
	ContextName    string
	UseLastContext bool
	ResetContext   bool
	ListContexts   bool
	DeleteContext  string
	ShowContext    bool

	// Input/Output
	Prompt string
	Plain  bool
	Quiet  bool
	Debug  bool
}

// Environment variable parsing functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// parseConfig extracts configuration from command-line flags
func parseConfig(cmd *cli.Command) *Config {
	return &Config{
		Server:  cmd.String("server"),
		Token:   cmd.String("token"),
		Timeout: cmd.Duration("timeout"),

		ContextName:    cmd.String("context"),
		UseLastContext: cmd.Bool("last"),
		ResetContext:   cmd.Bool("reset"),
		ListContexts:   cmd.Bool("list"),
		DeleteContext:  cmd.String("delete"),
		ShowContext:    cmd.Bool("show"),

		Prompt: cmd.String("prompt"),
		Plain:  cmd.Bool("plain"),
		Quiet:  cmd.Bool("quiet"),
		Debug:  cmd.Bool("debug"),
	}
}
