package inbox

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
	"task_wallet/internal/notify"
	"task_wallet/internal/store/memstore"
)

type recorder struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (r *recorder) Notify(_ context.Context, n notify.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func setup(t *testing.T) (*Service, *memstore.Store, *recorder, domain.User, domain.User) {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	rec := &recorder{}
	admin := domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, FirstName: "Ada", LastName: "Admin"}
	require.NoError(t, st.Users().Create(ctx, &admin))
	worker := domain.User{Email: "worker@example.com", FirstName: "Wes", LastName: "Worker"}
	require.NoError(t, st.Users().Create(ctx, &worker))
	return New(st, notify.NewFanout(st, rec)), st, rec, admin, worker
}

func TestSendToAdmins(t *testing.T) {
	svc, _, rec, admin, worker := setup(t)
	ctx := context.Background()

	msg, err := svc.SendToAdmins(ctx, worker.ID, "  When is payday?  ")
	require.NoError(t, err)
	assert.Equal(t, "When is payday?", msg.Text)
	require.NotNil(t, msg.From)
	assert.Equal(t, worker.Email, msg.From.Email)

	msgs, err := svc.ForUser(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.KindMessage, msgs[0].Kind)
	assert.Equal(t, "When is payday?", msgs[0].Text)
	require.NotNil(t, msgs[0].From)
	assert.Equal(t, worker.ID, msgs[0].From.ID)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "New message from Wes Worker", rec.sent[0].Subject)
}

func TestSendToUser(t *testing.T) {
	svc, _, rec, _, worker := setup(t)
	ctx := context.Background()

	_, err := svc.SendToUser(ctx, "WORKER@example.com", "Your payout is ready")
	require.NoError(t, err)

	msgs, err := svc.ForEmail(ctx, worker.Email)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Your payout is ready", msgs[0].Text)
	assert.Nil(t, msgs[0].From)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.sent, 1)
	assert.Equal(t, "Message from Admin", rec.sent[0].Subject)
	assert.Equal(t, worker.Email, rec.sent[0].To)
}

func TestInboxHidesProgressRecords(t *testing.T) {
	svc, st, _, _, worker := setup(t)
	ctx := context.Background()

	for _, kind := range []domain.EventKind{domain.KindStarted, domain.KindAttempted} {
		require.NoError(t, st.Events().Append(ctx, &domain.Event{
			FromUserID: domain.UintPtr(worker.ID),
			ToUserID:   worker.ID,
			Kind:       kind,
			TaskID:     domain.UintPtr(1),
		}))
	}
	require.NoError(t, st.Events().Append(ctx, &domain.Event{ToUserID: worker.ID, Kind: domain.KindTaskRejected, TaskName: "Survey"}))

	msgs, err := svc.ForUser(ctx, worker.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "taskRejected:Survey", msgs[0].Text)
}

func TestMessageValidation(t *testing.T) {
	svc, _, _, _, worker := setup(t)
	ctx := context.Background()

	_, err := svc.SendToAdmins(ctx, worker.ID, "   ")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
	_, err = svc.SendToAdmins(ctx, 999, "hello")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	_, err = svc.SendToUser(ctx, "nobody@example.com", "hello")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
	_, err = svc.ForEmail(ctx, "")
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
}

func TestDeletedSenderRendersAsSystem(t *testing.T) {
	svc, st, _, admin, worker := setup(t)
	ctx := context.Background()

	_, err := svc.SendToAdmins(ctx, worker.ID, "bye")
	require.NoError(t, err)
	require.NoError(t, st.Users().Delete(ctx, worker.ID))

	msgs, err := svc.ForUser(ctx, admin.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Nil(t, msgs[0].From)
}
