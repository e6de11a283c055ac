package escalation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/relaydesk-ai/support-orchestrator/internal/model"
	"github.com/relaydesk-ai/support-orchestrator/internal/store"
	"github.com/relaydesk-ai/support-orchestrator/pkg/logger"
)

type recordingNotifier struct {
	calls    int
	lastBody string
}

func (n *recordingNotifier) Notify(_ context.Context, _, _, body string) error {
	n.calls++
	n.lastBody = body
	return nil
}

func setup(t *testing.T) (*Workflow, store.ConversationStore, store.MessageStore, *recordingNotifier) {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	convs := store.NewConversationStore(db)
	msgs := store.NewMessageStore(db)
	notifier := &recordingNotifier{}
	log, _ := logger.New("error")

	return NewWorkflow(convs, msgs, notifier, log), convs, msgs, notifier
}

func TestWorkflow_FullEscalationPath(t *testing.T) {
	w, convs, msgs, notifier := setup(t)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		_, err := msgs.Create(ctx, conv.ID, model.SenderUser, "turn")
		require.NoError(t, err)
	}

	require.NoError(t, w.BeginEscalation(ctx, conv.ID, "handoff requested", "ai"))
	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalating, got.Status)
	require.NotNil(t, got.EscalationReason)
	assert.Equal(t, "handoff requested", *got.EscalationReason)

	reply, err := w.CollectEmail(ctx, conv.ID, "customer@example.com")
	require.NoError(t, err)
	assert.Equal(t, MsgEmailReceived, reply)

	got, err = convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalated, got.Status)
	require.NotNil(t, got.Contact)
	assert.Equal(t, "customer@example.com", *got.Contact)

	assert.Equal(t, 1, notifier.calls)
	assert.Contains(t, notifier.lastBody, "customer@example.com")
}

func TestWorkflow_CollectEmailOutsideEscalatingIsGraceful(t *testing.T) {
	w, convs, _, notifier := setup(t)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)

	reply, err := w.CollectEmail(ctx, conv.ID, "customer@example.com")
	require.NoError(t, err, "collection outside escalating is a no-op, not an error")
	assert.Equal(t, MsgNotCollecting, reply)
	assert.Equal(t, 0, notifier.calls)
}

func TestWorkflow_InvalidEmailPromptsRetry(t *testing.T) {
	w, convs, _, notifier := setup(t)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)
	require.NoError(t, w.BeginEscalation(ctx, conv.ID, "low confidence", "ai"))

	for _, bad := range []string{"not-an-email", "a@b", "@example.com", "user@", ""} {
		reply, err := w.CollectEmail(ctx, conv.ID, bad)
		require.NoError(t, err)
		assert.Equal(t, MsgInvalidEmail, reply, "input %q", bad)
	}

	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusEscalating, got.Status, "invalid email leaves the state unchanged")
	assert.Equal(t, 0, notifier.calls)
}

func TestWorkflow_BeginEscalationIsIdempotent(t *testing.T) {
	w, convs, _, _ := setup(t)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)

	require.NoError(t, w.BeginEscalation(ctx, conv.ID, "first", "ai"))
	require.NoError(t, w.BeginEscalation(ctx, conv.ID, "second", "ai"))

	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.EscalationReason)
	assert.Equal(t, "first", *got.EscalationReason, "repeat signals do not overwrite the original reason")
}

func TestWorkflow_Resolve(t *testing.T) {
	w, convs, _, _ := setup(t)
	ctx := context.Background()

	conv, err := convs.Create(ctx, "user-1", "kb-1", "api")
	require.NoError(t, err)

	assert.Error(t, w.Resolve(ctx, conv.ID, model.StatusOngoing))

	require.NoError(t, w.Resolve(ctx, conv.ID, model.StatusResolvedHuman))
	got, err := convs.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusResolvedHuman, got.Status)
	assert.NotNil(t, got.ResolvedAt)
}
