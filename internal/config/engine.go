package config

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EngineConfig tunes the forecasting engine and the factor fallback table.
type EngineConfig struct {
	WindowMonths     int                 `mapstructure:"windowMonths"`
	MaxWindowMonths  int                 `mapstructure:"maxWindowMonths"`
	MaxHorizonMonths int                 `mapstructure:"maxHorizonMonths"`
	Epsilon          float64             `mapstructure:"epsilon"`
	FlatThreshold    float64             `mapstructure:"flatThreshold"`
	MaxCategories    int                 `mapstructure:"maxCategories"`
	FallbackFactors  map[string]float64  `mapstructure:"fallbackFactors"`
	Recommendations  map[string][]string `mapstructure:"recommendations"`
}

func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		WindowMonths:     6,
		MaxWindowMonths:  120,
		MaxHorizonMonths: 60,
		Epsilon:          0.05,
		FlatThreshold:    0.01,
		MaxCategories:    3,
		FallbackFactors: map[string]float64{
			"electricity": 0.45,
			"fuel":        2.31,
			"paper":       0.01,
			"travel":      0.12,
			"waste":       0.5,
			"water":       0.0003,
		},
		Recommendations: map[string][]string{
			"electricity": {
				"Switch remaining lighting to LED",
				"Schedule HVAC setbacks outside office hours",
				"Enable power management on idle equipment",
			},
			"fuel": {
				"Consolidate delivery routes",
				"Move fleet vehicles to hybrid or electric",
				"Enforce an anti-idling policy",
			},
			"paper": {
				"Default printers to duplex",
				"Move approvals to digital signatures",
			},
			"travel": {
				"Replace short-haul trips with video calls",
				"Promote carpooling and public transport",
				"Offer remote work days",
			},
			"waste": {
				"Expand recycling stations",
				"Start an organic waste composting program",
			},
			"water": {
				"Install low-flow fixtures",
				"Audit and repair leaks quarterly",
			},
		},
	}
}

type EngineConfigHolder struct {
	current atomic.Value // holds EngineConfig
}

// NewStaticEngineConfigHolder returns a holder that never reloads.
func NewStaticEngineConfigHolder(cfg EngineConfig) *EngineConfigHolder {
	holder := &EngineConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func NewEngineConfigHolder() (*EngineConfigHolder, error) {
	return LoadEngineConfigHolder(
		"/var/lib/greentrack/config", // Volume-mounted config
		"/etc/greentrack",            // System config
		".",                          // Current directory (dev mode)
	)
}

// LoadEngineConfigHolder reads forecast.yml from the first matching path and
// watches it for changes. Missing files fall back to DefaultEngineConfig.
func LoadEngineConfigHolder(paths ...string) (*EngineConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("forecast")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("GREENTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEngineConfig()
	v.SetDefault("forecast.windowMonths", defaults.WindowMonths)
	v.SetDefault("forecast.maxWindowMonths", defaults.MaxWindowMonths)
	v.SetDefault("forecast.maxHorizonMonths", defaults.MaxHorizonMonths)
	v.SetDefault("forecast.epsilon", defaults.Epsilon)
	v.SetDefault("forecast.flatThreshold", defaults.FlatThreshold)
	v.SetDefault("forecast.maxCategories", defaults.MaxCategories)
	v.SetDefault("forecast.fallbackFactors", defaults.FallbackFactors)
	v.SetDefault("forecast.recommendations", defaults.Recommendations)

	found := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		found = false
	}

	cfg, err := decodeEngineConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticEngineConfigHolder(cfg)
	if !found {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decodeEngineConfig(v)
		if err != nil {
			log.Printf("[forecast-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[forecast-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func (h *EngineConfigHolder) Get() EngineConfig {
	return h.current.Load().(EngineConfig)
}

// Set validates cfg and swaps it in.
func (h *EngineConfigHolder) Set(cfg EngineConfig) error {
	if err := ValidateEngineConfig(cfg); err != nil {
		return err
	}
	h.current.Store(cfg)
	return nil
}

func decodeEngineConfig(v *viper.Viper) (EngineConfig, error) {
	cfg := EngineConfig{
		WindowMonths:     v.GetInt("forecast.windowMonths"),
		MaxWindowMonths:  v.GetInt("forecast.maxWindowMonths"),
		MaxHorizonMonths: v.GetInt("forecast.maxHorizonMonths"),
		Epsilon:          v.GetFloat64("forecast.epsilon"),
		FlatThreshold:    v.GetFloat64("forecast.flatThreshold"),
		MaxCategories:    v.GetInt("forecast.maxCategories"),
	}
	if err := v.UnmarshalKey("forecast.fallbackFactors", &cfg.FallbackFactors); err != nil {
		return EngineConfig{}, err
	}
	if err := v.UnmarshalKey("forecast.recommendations", &cfg.Recommendations); err != nil {
		return EngineConfig{}, err
	}
	cfg.FallbackFactors = lowerKeys(cfg.FallbackFactors)
	if err := ValidateEngineConfig(cfg); err != nil {
		return EngineConfig{}, err
	}
	return cfg, nil
}

func ValidateEngineConfig(cfg EngineConfig) error {
	if cfg.WindowMonths < 2 {
		return errors.New("forecast.windowMonths must be at least 2")
	}
	if cfg.MaxWindowMonths < cfg.WindowMonths {
		return errors.New("forecast.maxWindowMonths cannot be below forecast.windowMonths")
	}
	if cfg.MaxHorizonMonths < 1 {
		return errors.New("forecast.maxHorizonMonths must be at least 1")
	}
	if cfg.Epsilon < 0 {
		return errors.New("forecast.epsilon cannot be negative")
	}
	if cfg.FlatThreshold < 0 {
		return errors.New("forecast.flatThreshold cannot be negative")
	}
	if cfg.MaxCategories < 1 {
		return errors.New("forecast.maxCategories must be at least 1")
	}
	if len(cfg.FallbackFactors) == 0 {
		return errors.New("forecast.fallbackFactors cannot be empty")
	}
	for category, factor := range cfg.FallbackFactors {
		if factor < 0 {
			return fmt.Errorf("forecast.fallbackFactors.%s cannot be negative", category)
		}
	}
	return nil
}

func lowerKeys(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}
