package config_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/tubeaudio/pkg/cli/config"
	"github.com/m-mizutani/tubeaudio/pkg/domain/types"
)

func TestLogger_Configure(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		wantErr bool
	}{
		{
			name:    "Valid level: debug",
			level:   "debug",
			wantErr: false,
		},
		{
			name:    "Valid level: DEBUG (case insensitive)",
			level:   "DEBUG",
			wantErr: false,
		},
		{
			name:    "Valid level: info",
			level:   "info",
			wantErr: false,
		},
		{
			name:    "Valid level: Warn",
			level:   "Warn",
			wantErr: false,
		},
		{
			name:    "Valid level: ERROR",
			level:   "ERROR",
			wantErr: false,
		},
		{
			name:    "Invalid level: invalid",
			level:   "invalid",
			wantErr: true,
		},
		{
			name:    "Invalid level: empty string",
			level:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &config.Logger{
				Level:  tt.level,
				Format: config.LogFormatConsole,
				Writer: &bytes.Buffer{},
			}

			result, err := logger.Configure()
			if tt.wantErr {
				gt.Error(t, err)
				gt.True(t, goerr.HasTag(err, types.ErrTagInvalidConfig))
				return
			}

			gt.NoError(t, err)
			gt.NotNil(t, result)
		})
	}
}

func TestLogger_Configure_Format(t *testing.T) {
	for _, format := range []string{"console", "json", "JSON"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			logger := &config.Logger{Level: "info", Format: format, Writer: &buf}

			result, err := logger.Configure()
			gt.NoError(t, err)

			result.Info("test log message")
			gt.String(t, buf.String()).Contains("test log message")
		})
	}

	logger := &config.Logger{Level: "info", Format: "xml"}
	_, err := logger.Configure()
	gt.Error(t, err)
}

func TestLogger_Configure_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := &config.Logger{Level: "warn", Format: "json", Writer: &buf}

	result, err := logger.Configure()
	gt.NoError(t, err)

	result.Info("hidden message")
	result.Warn("shown message")

	gt.False(t, bytes.Contains(buf.Bytes(), []byte("hidden message")))
	gt.String(t, buf.String()).Contains("shown message")
}

func TestLogger_Configure_RedactsSecrets(t *testing.T) {
	var buf bytes.Buffer
	logger := &config.Logger{Level: "info", Format: "json", Writer: &buf}

	result, err := logger.Configure()
	gt.NoError(t, err)

	result.Info("config", "store", config.Store{
		JobStore:      "redis",
		RedisAddr:     "redis.internal:6379",
		RedisPassword: "p@ssw0rd-value",
	})

	gt.False(t, bytes.Contains(buf.Bytes(), []byte("p@ssw0rd-value")))
	gt.String(t, buf.String()).Contains("redis.internal:6379")

	var record map[string]any
	gt.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	gt.Value(t, record["msg"]).Equal("config")
}

func TestLogger_Flags(t *testing.T) {
	logger := &config.Logger{}
	flags := logger.Flags()
	gt.Number(t, len(flags)).Equal(2)

	flagNames := make(map[string]bool)
	for _, flag := range flags {
		names := flag.Names()
		if len(names) > 0 {
			flagNames[names[0]] = true
		}
	}

	gt.True(t, flagNames["log-level"])
	gt.True(t, flagNames["log-format"])
}
