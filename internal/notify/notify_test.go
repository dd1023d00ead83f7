package notify

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task_wallet/internal/domain"
	"task_wallet/internal/store/memstore"
)

type recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func TestStreamValuesRoundTrip(t *testing.T) {
	n := Notification{To: "a@example.com", Subject: "Hi", Body: "Line 1\nLine 2"}
	got, ok := fromValues(toValues(n))
	require.True(t, ok)
	assert.Equal(t, n, got)
}

func TestFromValuesRejectsMissingRecipient(t *testing.T) {
	_, ok := fromValues(map[string]any{"subject": "Hi"})
	assert.False(t, ok)
	_, ok = fromValues(map[string]any{"to": ""})
	assert.False(t, ok)
}

func TestFanoutAdmins(t *testing.T) {
	ctx := context.Background()
	st := memstore.New()
	rec := &recorder{}
	var admins []domain.User
	for _, email := range []string{"a1@example.com", "a2@example.com"} {
		u := domain.User{Email: email, Role: domain.RoleAdmin}
		require.NoError(t, st.Users().Create(ctx, &u))
		admins = append(admins, u)
	}
	worker := domain.User{Email: "w@example.com"}
	require.NoError(t, st.Users().Create(ctx, &worker))

	notice := &domain.Event{FromUserID: domain.UintPtr(worker.ID), Kind: domain.KindMessage, Body: "hello"}
	NewFanout(st, rec).Admins(ctx, notice, "Subject", "Body")

	for _, a := range admins {
		got, err := st.Events().ListToUser(ctx, a.ID, domain.KindMessage)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "hello", got[0].Body)
	}
	got, err := st.Events().ListToUser(ctx, worker.ID)
	require.NoError(t, err)
	assert.Empty(t, got)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.sent, 2)
	assert.ElementsMatch(t, []string{"a1@example.com", "a2@example.com"}, []string{rec.sent[0].To, rec.sent[1].To})
	// The caller's notice is left untouched.
	assert.Zero(t, notice.ToUserID)
}

func TestFanoutUser(t *testing.T) {
	rec := &recorder{}
	f := NewFanout(memstore.New(), rec)

	f.User(context.Background(), nil, "ignored", "")
	f.User(context.Background(), &domain.User{Email: "w@example.com"}, "Subject", "Body")

	require.Len(t, rec.sent, 1)
	assert.Equal(t, Notification{To: "w@example.com", Subject: "Subject", Body: "Body"}, rec.sent[0])
}

func TestSMTPMessage(t *testing.T) {
	m := &SMTPMailer{From: "no-reply@example.com"}
	msg := string(m.message(Notification{To: "w@example.com", Subject: "Two\nLines", Body: "Hello"}))

	assert.Contains(t, msg, "From: no-reply@example.com\r\n")
	assert.Contains(t, msg, "To: w@example.com\r\n")
	assert.Contains(t, msg, "Subject: Two Lines\r\n")
	assert.True(t, len(msg) > 5 && msg[len(msg)-5:] == "Hello")
}
