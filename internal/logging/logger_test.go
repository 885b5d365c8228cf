package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		logger, err := NewLogger(NewDefaultConfig(), nil)
		require.NoError(t, err)
		assert.True(t, logger.Enabled(zapcore.InfoLevel))
		assert.False(t, logger.Enabled(zapcore.DebugLevel))
	})

	t.Run("otel-only output without provider", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Output = OutputConfig{OTEL: true}

		_, err := NewLogger(cfg, nil)
		assert.Error(t, err)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := NewDefaultConfig()
		cfg.Format = "xml"

		_, err := NewLogger(cfg, nil)
		assert.ErrorContains(t, err, "invalid config")
	})
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "console", mutate: func(c *Config) { c.Format = "console" }},
		{name: "bad format", mutate: func(c *Config) { c.Format = "text" }, wantErr: true},
		{name: "no outputs", mutate: func(c *Config) { c.Output = OutputConfig{} }, wantErr: true},
		{name: "zero tick", mutate: func(c *Config) { c.Sampling.Tick = 0 }, wantErr: true},
		{name: "zero tick unsampled", mutate: func(c *Config) { c.Sampling = SamplingConfig{} }},
		{name: "empty field value", mutate: func(c *Config) { c.Fields["env"] = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLevelFromString(t *testing.T) {
	lvl, err := LevelFromString("trace")
	require.NoError(t, err)
	assert.Equal(t, TraceLevel, lvl)

	lvl, err = LevelFromString("warn")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	lvl, err = LevelFromString(" WARNING ")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = LevelFromString("loud")
	assert.Error(t, err)
}

func TestLogger_ContextFields(t *testing.T) {
	tl := NewTestLogger()

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithProject(ctx, "apitest")
	tl.Info(ctx, "issue created", zap.String("issue.id", "42"))

	tl.AssertLogged(t, zapcore.InfoLevel, "issue created")
	tl.AssertField(t, "issue created", "request.id", "req-1")
	tl.AssertField(t, "issue created", "project", "apitest")
	tl.AssertField(t, "issue created", "issue.id", "42")
}

func TestContextFields_Trace(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	fields := ContextFields(ctx)
	keys := make([]string, 0, len(fields))
	for _, f := range fields {
		keys = append(keys, f.Key)
	}
	assert.Equal(t, []string{"trace_id", "span_id"}, keys)
}

func TestContextTags_IgnoreEmpty(t *testing.T) {
	ctx := WithRequestID(context.Background(), "")
	ctx = WithProject(ctx, "")
	assert.Empty(t, RequestIDFromContext(ctx))
	assert.Empty(t, ProjectFromContext(ctx))
	assert.Empty(t, ContextFields(ctx))
}

func TestLogger_TraceLevel(t *testing.T) {
	tl := NewTestLogger()
	tl.Trace(context.Background(), "merge field")
	tl.AssertLogged(t, TraceLevel, "merge field")

	tl.Reset()
	assert.Empty(t, tl.All())
}
