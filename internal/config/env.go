// Package config provides the environment variable loader.
//
// File: internal/config/env.go

package config

import (
	"context"
	"os"
	"strings"
)

// EnvLoader loads configuration from environment variables using the
// double-underscore section separator convention, e.g.
// Database__ConnectionString or KeyManagement__AwsKmsKeyId. Only
// variables containing "__" are considered; everything else is left
// for other processes reading the environment.
type EnvLoader struct{}

// NewEnvLoader constructs an EnvLoader.
func NewEnvLoader() *EnvLoader {
	return &EnvLoader{}
}

// Load reads all "__"-separated environment variables and converts
// them into a nested map keyed by lowercased path segments.
func (l *EnvLoader) Load(ctx context.Context) (map[string]interface{}, error) {
	result := make(map[string]interface{})
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]
		if !strings.Contains(key, "__") {
			continue
		}
		path := strings.Split(key, "__")
		for i, seg := range path {
			path[i] = strings.ToLower(seg)
		}
		insertIntoMap(result, path, value)
	}
	return result, nil
}

// insertIntoMap recursively inserts a value into a nested map.
func insertIntoMap(m map[string]interface{}, path []string, value string) {
	if len(path) == 0 {
		return
	}
	if len(path) == 1 {
		m[path[0]] = value
		return
	}
	next, ok := m[path[0]]
	if !ok {
		next = make(map[string]interface{})
		m[path[0]] = next
	}
	nextMap, ok := next.(map[string]interface{})
	if !ok {
		nextMap = make(map[string]interface{})
		m[path[0]] = nextMap
	}
	insertIntoMap(nextMap, path[1:], value)
}

// EOF: internal/config/env.go
