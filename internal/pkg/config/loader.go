// Package config implements fail-open loading of worker settings from the
// environment: an invalid value is replaced by its default and reported as
// a warning, so a typo never prevents the worker from starting.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Result is the outcome of loading one variable.
type Result[T any] struct {
	Value T

	// Warning describes why the default was used. Empty unless
	// FallbackApplied is set.
	Warning string

	// FallbackApplied is true when the variable was set but rejected.
	FallbackApplied bool
}

// Load reads envKey, parses it and validates it. An unset or blank variable
// yields defaultValue without a warning. validator may be nil.
func Load[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) Result[T] {
	raw := strings.TrimSpace(os.Getenv(envKey))
	if raw == "" {
		return Result[T]{Value: defaultValue}
	}

	v, err := parse(raw)
	if err == nil && validator != nil {
		err = validator(v)
	}
	if err != nil {
		return Result[T]{
			Value:           defaultValue,
			Warning:         fmt.Sprintf("invalid %s=%q: %v, falling back to default %v", envKey, raw, err, defaultValue),
			FallbackApplied: true,
		}
	}
	return Result[T]{Value: v}
}

// LoadEnvWithFallback loads a string variable.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) Result[string] {
	return Load(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvInt loads a base-10 integer variable.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) Result[int] {
	return Load(envKey, defaultValue, strconv.Atoi, validator)
}

// LoadEnvDuration loads a time.ParseDuration variable such as "30m".
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) Result[time.Duration] {
	return Load(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvBool loads a strconv.ParseBool variable.
func LoadEnvBool(envKey string, defaultValue bool) Result[bool] {
	return Load(envKey, defaultValue, strconv.ParseBool, nil)
}
