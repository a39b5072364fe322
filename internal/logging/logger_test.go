package logging

import (
	"errors"
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "debug console", cfg: Config{Level: "debug", Format: "console"}},
		{name: "info json", cfg: Config{Level: "info", Format: "json"}},
		{name: "warn console", cfg: Config{Level: "warn", Format: "console"}},
		{name: "error json", cfg: Config{Level: "error", Format: "json"}},
		{name: "unknown level", cfg: Config{Level: "verbose", Format: "console"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func TestNewRespectsLevel(t *testing.T) {
	logger, err := New(Config{Level: "warn", Format: "json"})
	require.NoError(t, err)

	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
	assert.True(t, logger.Core().Enabled(zapcore.ErrorLevel))
}

func TestNewEncoder(t *testing.T) {
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Message: "hello"}

	buf, err := newEncoder("json").EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"msg":"hello"`)
	assert.Contains(t, buf.String(), `"ts"`)

	buf, err = newEncoder("console").EncodeEntry(entry, nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello")
	assert.NotContains(t, buf.String(), `"msg"`)
}

func TestSyncSwallowsStderrErrors(t *testing.T) {
	logger, err := New(Config{Level: "info", Format: "console"})
	require.NoError(t, err)

	logger.Info("flush me")
	assert.NoError(t, Sync(logger))
}

func TestIsStdoutSyncError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "einval", err: syscall.EINVAL, want: true},
		{name: "enotty", err: syscall.ENOTTY, want: true},
		{name: "eio", err: syscall.EIO, want: false},
		{name: "plain error", err: errors.New("boom"), want: false},
		{name: "wrapped einval", err: fmt.Errorf("sync: %w", syscall.EINVAL), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isStdoutSyncError(tt.err))
		})
	}
}
