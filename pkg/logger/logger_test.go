package logger_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "ledgercore/internal/core/context"
	"ledgercore/internal/core/id"
	"ledgercore/pkg/logger"
)

func observed(level zapcore.Level) (*logger.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, logs
}

func TestFromContext_AttachesTraceAndTenant(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)
	tenantID, userID := id.New(), id.New()

	ctx := logger.WithLogger(context.Background(), log)
	ctx = appctx.WithTrace(ctx, appctx.NewTraceContext("trace-1", "req-1"))
	ctx = appctx.WithUser(ctx, &appctx.UserContext{UserID: userID, TenantID: tenantID})

	logger.Info(ctx, "stock adjusted", "delta", 3)

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "trace-1", fields["trace_id"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.Equal(t, tenantID.String(), fields["tenant_id"])
	assert.Equal(t, userID.String(), fields["user_id"])
	assert.EqualValues(t, 3, fields["delta"])
}

func TestFromContext_RespectsLevel(t *testing.T) {
	log, logs := observed(zapcore.WarnLevel)
	ctx := logger.WithLogger(context.Background(), log)

	logger.Debug(ctx, "dropped")
	logger.Info(ctx, "dropped")
	logger.Warn(ctx, "kept")
	logger.Error(ctx, "kept")

	assert.Equal(t, 2, logs.Len())
}

func TestWithComponent(t *testing.T) {
	log, logs := observed(zapcore.InfoLevel)

	log.WithComponent("worker").Info("started")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "worker", logs.All()[0].ContextMap()["component"])
}

func TestNew_FallsBackToInfo(t *testing.T) {
	log, err := logger.New(logger.Config{Level: "loud", OutputPaths: []string{"stderr"}})
	require.NoError(t, err)

	assert.True(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.False(t, log.Desugar().Core().Enabled(zapcore.DebugLevel))
}
