package config

import (
	"github.com/spf13/pflag"
)

// EventsConfig holds configuration for the events command.
type EventsConfig struct {
	In       string
	Out      string
	Errors   string
	Names    []string
	LogLevel string
}

// LoadEvents merges config file, environment variables, and flags into EventsConfig.
func LoadEvents(cfgFile string, flags *pflag.FlagSet) (EventsConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":        "./data/events.jsonl",
		"errors":    "./data/decode_errors.jsonl",
		"log-level": "info",
	})
	if err != nil {
		return EventsConfig{}, err
	}

	return EventsConfig{
		In:       v.GetString("in"),
		Out:      v.GetString("out"),
		Errors:   v.GetString("errors"),
		Names:    getStringSlice(v, "event"),
		LogLevel: v.GetString("log-level"),
	}, nil
}
