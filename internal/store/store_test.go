package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relaydesk-ai/support-orchestrator/internal/apperr"
	"github.com/relaydesk-ai/support-orchestrator/internal/model"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	return db
}

func TestConversationStore_FindOngoingReusesThread(t *testing.T) {
	db := testDB(t)
	convs := NewConversationStore(db)
	ctx := context.Background()

	created, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)

	found, err := convs.FindOngoing(ctx, "user-1", "kb-1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID, "same ongoing thread is reused, not duplicated")

	// A different kb is a different partition.
	_, err = convs.FindOngoing(ctx, "user-1", "kb-2")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestConversationStore_FindOngoingSkipsResolved(t *testing.T) {
	db := testDB(t)
	convs := NewConversationStore(db)
	ctx := context.Background()

	created, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)
	require.NoError(t, convs.Resolve(ctx, created.ID, model.StatusResolvedAI))

	_, err = convs.FindOngoing(ctx, "user-1", "kb-1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	resolved, err := convs.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolvedAI, resolved.Status)
	assert.NotNil(t, resolved.ResolvedAt)
}

func TestConversationStore_TicketNumber(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		ticket := NewTicketNumber()
		assert.True(t, strings.HasPrefix(ticket, "TKT-"))
		assert.Len(t, ticket, 4+8)
		seen[ticket] = struct{}{}
	}
	assert.Greater(t, len(seen), 90, "ticket codes should be effectively unique")
}

func TestMessageStore_OrderingAndRecent(t *testing.T) {
	db := testDB(t)
	convs := NewConversationStore(db)
	msgs := NewMessageStore(db)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		sender := model.SenderUser
		if i%2 == 1 {
			sender = model.SenderAI
		}
		_, err := msgs.Create(ctx, conv.ID, sender, strings.Repeat("m", i+1))
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	all, err := msgs.ListByConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, all, 8)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.Before(all[i-1].CreatedAt))
	}

	recent, err := msgs.ListRecent(ctx, conv.ID, 6)
	require.NoError(t, err)
	require.Len(t, recent, 6)
	assert.Equal(t, all[2].ID, recent[0].ID, "recent keeps the last turns in chronological order")
	assert.Equal(t, all[7].ID, recent[5].ID)
}

func TestMetricsStore_UpsertNeverDuplicates(t *testing.T) {
	db := testDB(t)
	convs := NewConversationStore(db)
	metrics := NewMetricsStore(db)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)

	require.NoError(t, metrics.Upsert(ctx, &model.TurnMetrics{
		ConversationID:      conv.ID,
		ResponseTimeSeconds: 1.5,
		AIResponses:         1,
	}))
	require.NoError(t, metrics.Upsert(ctx, &model.TurnMetrics{
		ConversationID:      conv.ID,
		ResponseTimeSeconds: 2.5,
		AIResponses:         2,
		HandoffTriggered:    true,
	}))

	var count int64
	require.NoError(t, db.Model(&model.TurnMetrics{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	got, err := metrics.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.ResponseTimeSeconds)
	assert.Equal(t, 2, got.AIResponses)
	assert.True(t, got.HandoffTriggered)

	require.NoError(t, metrics.SetSatisfaction(ctx, conv.ID, 4))
	got, err = metrics.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.SatisfactionScore)
	assert.Equal(t, 4, *got.SatisfactionScore)
}

func TestFileStore_BatchedResolve(t *testing.T) {
	db := testDB(t)
	files := NewFileStore(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.FileMeta{ID: "f1", KBID: "kb-1", Name: "Guide"}).Error)

	out, err := files.ResolveFiles(ctx, []string{"f1", "missing"})
	require.NoError(t, err)
	assert.Len(t, out, 1)
	assert.Equal(t, "Guide", out["f1"].Name)

	empty, err := files.ResolveFiles(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
