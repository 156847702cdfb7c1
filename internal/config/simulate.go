package config

import (
	"fmt"

	"github.com/spf13/pflag"
)

// SimulateConfig holds configuration for the simulate command on top of the
// shared settings.
type SimulateConfig struct {
	Config
	Pools      []string
	Workers    int
	Deposits   int
	MaxLP      uint64
	Slippage   uint64
	HoldOpen   bool
	FundAmount uint64
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	base, err := Load(cfgFile, flags)
	if err != nil {
		return SimulateConfig{}, err
	}
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"workers":     4,
		"deposits":    100,
		"max-lp":      uint64(1_000_000),
		"slippage":    uint64(100),
		"fund-amount": uint64(1_000_000_000_000),
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Config:     base,
		Pools:      getStringSlice(v, "pool"),
		Workers:    v.GetInt("workers"),
		Deposits:   v.GetInt("deposits"),
		MaxLP:      v.GetUint64("max-lp"),
		Slippage:   v.GetUint64("slippage"),
		HoldOpen:   v.GetBool("hold-open"),
		FundAmount: v.GetUint64("fund-amount"),
	}
	if len(cfg.Pools) == 0 {
		return SimulateConfig{}, fmt.Errorf("at least one pool is required")
	}
	if cfg.Workers <= 0 {
		return SimulateConfig{}, fmt.Errorf("workers must be positive")
	}
	if cfg.MaxLP == 0 {
		return SimulateConfig{}, fmt.Errorf("max-lp must be positive")
	}
	return cfg, nil
}
