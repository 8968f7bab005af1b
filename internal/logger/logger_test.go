package logger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name        string
		level       string
		logFn       func()
		wantMessage string
		wantLogged  bool
	}{
		{
			name:        "info logged at info level",
			level:       "info",
			logFn:       func() { Info("fetch complete", Fields{"url": "http://example.test"}) },
			wantMessage: "fetch complete",
			wantLogged:  true,
		},
		{
			name:        "debug suppressed at info level",
			level:       "info",
			logFn:       func() { Debug("cache hit") },
			wantMessage: "cache hit",
			wantLogged:  false,
		},
		{
			name:        "debug logged at debug level",
			level:       "debug",
			logFn:       func() { Debug("cache hit") },
			wantMessage: "cache hit",
			wantLogged:  true,
		},
		{
			name:        "warn logged at info level",
			level:       "info",
			logFn:       func() { Warnf("retrying %s", "http://example.test") },
			wantMessage: "retrying http://example.test",
			wantLogged:  true,
		},
		{
			name:        "error logged at error level",
			level:       "error",
			logFn:       func() { Error("download failed") },
			wantMessage: "download failed",
			wantLogged:  true,
		},
		{
			name:        "info suppressed at error level",
			level:       "error",
			logFn:       func() { Info("verbose detail") },
			wantMessage: "verbose detail",
			wantLogged:  false,
		},
		{
			name:        "unknown level falls back to info",
			level:       "chatty",
			logFn:       func() { Info("still works") },
			wantMessage: "still works",
			wantLogged:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			SetTestOutput(&buf)
			defer UnsetTestOutput()

			InitLogger(tt.level)
			tt.logFn()

			if tt.wantLogged {
				assert.Contains(t, buf.String(), tt.wantMessage)
			} else {
				assert.NotContains(t, buf.String(), tt.wantMessage)
			}
		})
	}
}

func TestFieldsAppearInOutput(t *testing.T) {
	var buf bytes.Buffer
	SetTestOutput(&buf)
	defer UnsetTestOutput()

	InitLogger("info")
	Info("downloaded", Fields{"bytes": 1024, "status": 200})

	out := buf.String()
	assert.Contains(t, out, "bytes=1024")
	assert.Contains(t, out, "status=200")
}

func TestErrorfWithFields(t *testing.T) {
	var buf bytes.Buffer
	SetTestOutput(&buf)
	defer UnsetTestOutput()

	InitLogger("info")
	ErrorfWithFields(Fields{"url": "http://example.test/x"}, "giving up after %d attempts", 3)

	out := buf.String()
	assert.Contains(t, out, "giving up after 3 attempts")
	assert.Contains(t, out, "url=http://example.test/x")
}
