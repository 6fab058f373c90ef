package config

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadEnvWithFallback(t *testing.T) {
	tests := []struct {
		name         string
		env          string
		want         string
		wantFallback bool
	}{
		{"TC-1: unset uses default", "", "*/30 * * * *", false},
		{"TC-2: valid value", "0 * * * *", "0 * * * *", false},
		{"TC-3: invalid value falls back", "not a cron", "*/30 * * * *", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_SCHEDULE", tt.env)
			r := LoadEnvWithFallback("TEST_SCHEDULE", "*/30 * * * *", ValidateCronSchedule)
			assert.Equal(t, tt.want, r.Value)
			assert.Equal(t, tt.wantFallback, r.FallbackApplied)
			if tt.wantFallback {
				assert.Contains(t, r.Warning, "TEST_SCHEDULE")
			} else {
				assert.Empty(t, r.Warning)
			}
		})
	}
}

func TestLoadEnvInt(t *testing.T) {
	inRange := func(v int) error { return ValidateIntRange(v, 1, 30) }

	t.Setenv("TEST_DAYS", "7")
	assert.Equal(t, 7, LoadEnvInt("TEST_DAYS", 3, inRange).Value)

	t.Setenv("TEST_DAYS", "seven")
	r := LoadEnvInt("TEST_DAYS", 3, inRange)
	assert.Equal(t, 3, r.Value)
	assert.True(t, r.FallbackApplied)

	t.Setenv("TEST_DAYS", "90")
	r = LoadEnvInt("TEST_DAYS", 3, inRange)
	assert.Equal(t, 3, r.Value)
	assert.True(t, r.FallbackApplied)
}

func TestLoadEnvDuration(t *testing.T) {
	t.Setenv("TEST_TIMEOUT", " 10m ")
	r := LoadEnvDuration("TEST_TIMEOUT", time.Minute, nil)
	assert.Equal(t, 10*time.Minute, r.Value)
	assert.False(t, r.FallbackApplied)

	t.Setenv("TEST_TIMEOUT", "10")
	r = LoadEnvDuration("TEST_TIMEOUT", time.Minute, nil)
	assert.Equal(t, time.Minute, r.Value)
	assert.True(t, r.FallbackApplied)
}

func TestLoadEnvBool(t *testing.T) {
	t.Setenv("TEST_FLAG", "true")
	assert.True(t, LoadEnvBool("TEST_FLAG", false).Value)

	t.Setenv("TEST_FLAG", "yes")
	r := LoadEnvBool("TEST_FLAG", false)
	assert.False(t, r.Value)
	assert.True(t, r.FallbackApplied)
}

func TestLoad_ValidatorNotCalledOnParseError(t *testing.T) {
	t.Setenv("TEST_X", "abc")
	called := false
	r := LoadEnvInt("TEST_X", 1, func(int) error {
		called = true
		return errors.New("unreachable")
	})
	assert.False(t, called)
	assert.True(t, r.FallbackApplied)
}
