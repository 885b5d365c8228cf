package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fyrsmithlabs/issuetracker/internal/issue"
	"github.com/fyrsmithlabs/issuetracker/internal/telemetry"
)

func TestMetrics_Start(t *testing.T) {
	tt := telemetry.NewTestTelemetry()
	m := newMetrics(tt.Meter(instrumentationName), nil)

	ctx := context.Background()
	m.start(ctx, "issue_update")(nil)
	m.start(ctx, "issue_update")(&issue.Error{Kind: issue.ErrNotFound, Message: issue.MsgCouldNotUpdate})
	pending := m.start(ctx, "issue_list")

	rm, err := tt.Collect(ctx)
	require.NoError(t, err)
	inFlight, _ := telemetry.Sum(rm, "issuetracker.mcp.tool.in_flight")
	assert.Equal(t, int64(1), inFlight)

	pending(errors.New("boom"))
	rm, err = tt.Collect(ctx)
	require.NoError(t, err)

	calls := func(tool, outcome string) int64 {
		n, _ := telemetry.Sum(rm, "issuetracker.mcp.tool.calls_total",
			attribute.String("tool", tool), attribute.String("outcome", outcome))
		return n
	}
	assert.Equal(t, int64(1), calls("issue_update", "ok"))
	assert.Equal(t, int64(1), calls("issue_update", "not_found"))
	assert.Equal(t, int64(1), calls("issue_list", "internal"))

	inFlight, _ = telemetry.Sum(rm, "issuetracker.mcp.tool.in_flight")
	assert.Equal(t, int64(0), inFlight)
}

func TestMetrics_Nil(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.start(context.Background(), "issue_list")(nil) })
}
