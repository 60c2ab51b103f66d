// Package config provides configuration loading from multiple sources.
//
// File: internal/config/loader.go

package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// LoadConfig loads and merges configuration from multiple sources.
// Sources are processed in the order given, each overwriting keys the
// previous ones set; defaults are applied first, so later loaders
// (typically a YAML file followed by an EnvLoader) win. Returns the
// fully populated, validated Config.
func LoadConfig(ctx context.Context, loaders ...Loader) (*Config, error) {
	merged := defaultConfig()

	for _, loader := range loaders {
		data, err := loader.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("config loader %T: %w", loader, err)
		}
		merged = mergeMaps(merged, data)
	}

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	if err := decoder.Decode(merged); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// defaultConfig returns the built-in default configuration, overridden
// by any file or env loader that runs after it.
func defaultConfig() map[string]interface{} {
	return map[string]interface{}{
		"solana": map[string]interface{}{
			"rpcurl":     DefaultRPCEndpoint(false),
			"usedevnet":  false,
			"commitment": "confirmed",
		},
		"keymanagement": map[string]interface{}{
			"provider": string(ProviderLocal),
		},
		"ratelimit": map[string]interface{}{
			"requestsperminute": 60,
			"burstsize":         10,
		},
		"observability": map[string]interface{}{
			"logging": map[string]interface{}{
				"level":  "info",
				"format": "json",
				"output": "stdout",
			},
			"metrics": map[string]interface{}{
				"enabled": false,
				"addr":    ":9090",
				"path":    "/metrics",
			},
			"tracing": map[string]interface{}{
				"enabled":     false,
				"exporter":    "stdout",
				"servicename": "paymentsvcd",
			},
		},
	}
}

// mergeMaps recursively merges src into dst, returning dst.
func mergeMaps(dst, src map[string]interface{}) map[string]interface{} {
	for k, v := range src {
		if vm, ok := v.(map[string]interface{}); ok {
			if dm, ok := dst[k].(map[string]interface{}); ok {
				dst[k] = mergeMaps(dm, vm)
				continue
			}
			dst[k] = vm
			continue
		}
		dst[k] = v
	}
	return dst
}

// EOF: internal/config/loader.go
