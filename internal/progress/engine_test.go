package progress

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task_wallet/internal/apperr"
	"task_wallet/internal/catalog"
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

type fixture struct {
	st     *memstore.Store
	engine *Engine
	mail   *recorder
	admin  domain.User
	worker domain.User
	task   domain.Task
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	f := &fixture{st: memstore.New(), mail: &recorder{}}

	f.admin = domain.User{Email: "admin@example.com", Role: domain.RoleAdmin, FirstName: "Ada", LastName: "Admin"}
	require.NoError(t, f.st.Users().Create(ctx, &f.admin))
	f.worker = domain.User{Email: "worker@example.com", ProfileType: domain.ProfileWorker, FirstName: "Wes", LastName: "Worker"}
	require.NoError(t, f.st.Users().Create(ctx, &f.worker))
	f.task = domain.Task{Name: "Survey", Description: "Fill the survey", Price: decimal.NewFromInt(50), URL: "https://example.com/s"}
	require.NoError(t, f.st.Tasks().Create(ctx, &f.task))

	fanout := notify.NewFanout(f.st, f.mail)
	f.engine = NewEngine(f.st, catalog.New(f.st, nil, fanout), fanout)
	return f
}

func TestAttemptWithoutStartFails(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Attempt(context.Background(), f.worker.ID, f.task.ID)

	require.ErrorIs(t, err, apperr.ErrNotStarted)
	assert.Equal(t, apperr.CodePreconditionFailed, apperr.CodeOf(err))
	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, "Must start first", appErr.Message)
}

func TestStartThenAttempt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	status, err := f.engine.StatusFor(ctx, f.worker.ID, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, NotStarted, status)

	require.NoError(t, f.engine.Start(ctx, f.worker.ID, f.task.ID))
	status, err = f.engine.StatusFor(ctx, f.worker.ID, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, InProgress, status)

	started, err := f.engine.StartedAt(ctx, f.worker.ID, f.task.ID)
	require.NoError(t, err)
	assert.NotNil(t, started)

	require.NoError(t, f.engine.Attempt(ctx, f.worker.ID, f.task.ID))
	status, err = f.engine.StatusFor(ctx, f.worker.ID, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, Completed, status)

	assert.ErrorIs(t, f.engine.Attempt(ctx, f.worker.ID, f.task.ID), apperr.ErrAlreadyAttempted)
}

func TestStartTwiceFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Start(ctx, f.worker.ID, f.task.ID))
	assert.ErrorIs(t, f.engine.Start(ctx, f.worker.ID, f.task.ID), apperr.ErrAlreadyStarted)
}

func TestConcurrentStartsStayInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- f.engine.Start(ctx, f.worker.ID, f.task.ID)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrAlreadyStarted)
	}
	assert.GreaterOrEqual(t, ok, 1)

	status, err := f.engine.StatusFor(ctx, f.worker.ID, f.task.ID)
	require.NoError(t, err)
	assert.Equal(t, InProgress, status)
}

func TestAcceptedTaskCannotBeAttemptedAgain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Start(ctx, f.worker.ID, f.task.ID))
	// Review consumed the attempt and paid out.
	require.NoError(t, f.st.Events().Append(ctx, &domain.Event{
		ToUserID: f.worker.ID,
		Kind:     domain.KindTaskAccepted,
		TaskID:   domain.UintPtr(f.task.ID),
		TaskName: f.task.Name,
		Amount:   domain.Money(f.task.Price),
	}))

	assert.ErrorIs(t, f.engine.Attempt(ctx, f.worker.ID, f.task.ID), apperr.ErrAlreadyAttempted)
}

func TestStartUnknownTask(t *testing.T) {
	f := newFixture(t)
	assert.ErrorIs(t, f.engine.Start(context.Background(), f.worker.ID, 999), apperr.ErrTaskNotFound)
}

func TestStartNotifiesAdmins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Start(ctx, f.worker.ID, f.task.ID))

	notices, err := f.st.Events().ListToUser(ctx, f.admin.ID, domain.KindTaskStartedNotice)
	require.NoError(t, err)
	require.Len(t, notices, 1)
	assert.Equal(t, "start:worker@example.com:Survey:50", notices[0].Tag())

	f.mail.mu.Lock()
	defer f.mail.mu.Unlock()
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "admin@example.com", f.mail.sent[0].To)
	assert.Equal(t, "Task Started by User", f.mail.sent[0].Subject)
}

func TestBoardAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	f.st.SetClock(func() time.Time { clock = clock.Add(time.Second); return clock })

	other := domain.Task{Name: "Review app", Description: "Write a review", Price: decimal.NewFromInt(10), URL: "https://example.com/r"}
	require.NoError(t, f.st.Tasks().Create(ctx, &other))

	require.NoError(t, f.engine.Start(ctx, f.worker.ID, f.task.ID))
	require.NoError(t, f.engine.Attempt(ctx, f.worker.ID, f.task.ID))

	board, err := f.engine.Board(ctx, f.worker.ID)
	require.NoError(t, err)
	got := map[uint]Status{}
	for _, v := range board {
		got[v.ID] = v.Status
	}
	assert.Equal(t, map[uint]Status{f.task.ID: Completed, other.ID: NotStarted}, got)

	history, err := f.engine.History(ctx, f.worker.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, Completed, history[0].Status)
	assert.Equal(t, InProgress, history[1].Status)
	assert.Equal(t, "Survey", history[0].TaskName)

	// Deleted tasks drop out of the history.
	require.NoError(t, f.st.Tasks().Delete(ctx, f.task.ID))
	history, err = f.engine.History(ctx, f.worker.ID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestStartUnknownUser(t *testing.T) {
	f := newFixture(t)
	err := f.engine.Start(context.Background(), 12345, f.task.ID)
	assert.True(t, errors.Is(err, apperr.ErrUserNotFound))
}
