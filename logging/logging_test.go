package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   DebugLevel,
		"INFO":    InfoLevel,
		"":        InfoLevel,
		"Warn":    WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("verbose")
	assert.Error(t, err)
}

func TestDefaultLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut)
	logger.SetLevel(DebugLevel)

	logger.Debug("decoding block", Fields{"block": 3})
	logger.Warn("provider skipped")
	logger.Error(errors.New("timeout"), "lookup failed", Fields{"provider": "shazam"})

	assert.Contains(t, out.String(), "[DEBUG] decoding block block=3")
	assert.Contains(t, errOut.String(), "[WARN] provider skipped")
	assert.Contains(t, errOut.String(), "[ERROR] lookup failed: timeout provider=shazam")
	assert.NotContains(t, out.String(), "lookup failed")
}

func TestDefaultLoggerLevelFilter(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &errOut)
	logger.SetLevel(WarnLevel)

	logger.Info("hidden")
	logger.Warn("shown")

	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "shown")
}

func TestWithFieldsSortedAndInherited(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &out).WithFields(Fields{"component": "segmenter"})

	logger.Info("done", Fields{"blocks": 12, "after": "x"})

	assert.Contains(t, out.String(), "after=x blocks=12 component=segmenter")
}

func TestWithContextFields(t *testing.T) {
	var out bytes.Buffer
	base := NewDefaultLoggerWithWriters(&out, &out)

	ctx := ContextWithFields(context.Background(), Fields{"file": "mix.flac"})
	ctx = ContextWithFields(ctx, Fields{"job": 2})

	fields, ok := FieldsFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, Fields{"file": "mix.flac", "job": 2}, fields)

	base.WithContext(ctx).Info("start")
	assert.Contains(t, out.String(), "file=mix.flac job=2")

	_, ok = FieldsFromContext(context.Background())
	assert.False(t, ok)
}

func TestFatalUsesExitHook(t *testing.T) {
	var out bytes.Buffer
	logger := NewDefaultLoggerWithWriters(&out, &out)
	code := -1
	logger.exit = func(c int) { code = c }

	logger.Fatal(errors.New("boom"), "cannot continue")

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "[FATAL] cannot continue: boom")
}

func TestSetGlobalLoggerNil(t *testing.T) {
	prev := GetGlobalLogger()
	t.Cleanup(func() { SetGlobalLogger(prev) })

	SetGlobalLogger(nil)
	_, ok := GetGlobalLogger().(*NoOpLogger)
	assert.True(t, ok)
	assert.NotPanics(t, func() { WithFields(Fields{"a": 1}).Info("x") })
}
