package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/greentrack/internal/audit/domain"
	"github.com/smallbiznis/greentrack/internal/audit/repository"
	obscontext "github.com/smallbiznis/greentrack/internal/observability/context"
	"github.com/smallbiznis/greentrack/pkg/db"
	"github.com/smallbiznis/greentrack/pkg/telemetry/correlation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	conn, err := db.NewTest(t.Name())
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&auditdomain.AuditLog{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewService(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestRecordStampsContext(t *testing.T) {
	svc := newTestService(t)

	ctx := obscontext.WithActor(context.Background(), obscontext.ActorTypeUser, "user-1")
	ctx = obscontext.WithRequestID(ctx, "req-1")
	ctx = correlation.ContextWithCorrelationID(ctx, "corr-1")

	err := svc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionActivityRecorded,
		TargetType: auditdomain.TargetActivity,
		TargetID:   "42",
		Metadata:   map[string]any{"category": "fuel", "notes": "fleet refuel"},
	})
	require.NoError(t, err)

	logs, err := svc.List(context.Background(), auditdomain.ListFilter{TargetID: "42"})
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, obscontext.ActorTypeUser, entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "user-1", *entry.ActorID)
	assert.Equal(t, "fuel", entry.Metadata["category"])
	assert.Equal(t, "****fuel", entry.Metadata["notes"])
	assert.Equal(t, "req-1", entry.Metadata["request_id"])
	assert.Equal(t, "corr-1", entry.Metadata["correlation_id"])
}

func TestRecordRejectsBlankAction(t *testing.T) {
	svc := newTestService(t)

	err := svc.Record(context.Background(), auditdomain.Entry{Action: " "})
	assert.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestNotifyDefaultsToSystemActor(t *testing.T) {
	svc := newTestService(t)

	svc.Notify(context.Background(), auditdomain.Entry{
		Action:     auditdomain.ActionGoalAchieved,
		TargetType: auditdomain.TargetGoal,
		TargetID:   "7",
	})

	logs, err := svc.List(context.Background(), auditdomain.ListFilter{Action: auditdomain.ActionGoalAchieved})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, obscontext.ActorTypeSystem, logs[0].ActorType)
	assert.Nil(t, logs[0].ActorID)
}
