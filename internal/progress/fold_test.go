package progress

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"task_wallet/internal/domain"
)

func ev(kind domain.EventKind, from *uint, to, task uint, at time.Time) domain.Event {
	return domain.Event{FromUserID: from, ToUserID: to, Kind: kind, TaskID: domain.UintPtr(task), CreatedAt: at}
}

func statuses(m map[uint]Progress) map[uint]Status {
	out := make(map[uint]Status, len(m))
	for id, p := range m {
		out[id] = p.Status()
	}
	return out
}

func TestFoldDerivesStatus(t *testing.T) {
	const user = 7
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	me := domain.UintPtr(user)

	events := []domain.Event{
		ev(domain.KindStarted, me, user, 1, base),
		ev(domain.KindStarted, me, user, 2, base),
		ev(domain.KindAttempted, me, user, 2, base.Add(time.Hour)),
		ev(domain.KindTaskAccepted, nil, user, 3, base),
	}
	got := statuses(Fold(user, events))

	assert.Equal(t, map[uint]Status{1: InProgress, 2: Completed, 3: Completed}, got)
	assert.Equal(t, NotStarted, Fold(user, events)[99].Status())
}

func TestFoldIsOrderIndependent(t *testing.T) {
	const user = 1
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	me := domain.UintPtr(user)
	events := []domain.Event{
		ev(domain.KindStarted, me, user, 1, base),
		ev(domain.KindStarted, me, user, 1, base.Add(time.Minute)),
		ev(domain.KindAttempted, me, user, 1, base.Add(2*time.Minute)),
		ev(domain.KindStarted, me, user, 2, base.Add(3*time.Minute)),
		ev(domain.KindStarted, me, user, 3, base.Add(4*time.Minute)),
		ev(domain.KindAttempted, me, user, 3, base.Add(5*time.Minute)),
	}
	want := Fold(user, events)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		shuffled := append([]domain.Event(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Fold(user, shuffled))
	}
}

func TestFoldCollapsesDuplicates(t *testing.T) {
	const user = 1
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	me := domain.UintPtr(user)

	once := Fold(user, []domain.Event{ev(domain.KindStarted, me, user, 4, base)})
	twice := Fold(user, []domain.Event{
		ev(domain.KindStarted, me, user, 4, base),
		ev(domain.KindStarted, me, user, 4, base),
	})
	assert.Equal(t, once, twice)
	assert.Equal(t, InProgress, twice[4].Status())
}

func TestFoldKeepsLatestTimestamp(t *testing.T) {
	const user = 1
	early := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	me := domain.UintPtr(user)

	got := Fold(user, []domain.Event{
		ev(domain.KindStarted, me, user, 1, late),
		ev(domain.KindStarted, me, user, 1, early),
	})
	if assert.NotNil(t, got[1].StartedAt) {
		assert.True(t, got[1].StartedAt.Equal(late))
	}
}

func TestFoldIgnoresForeignAndTasklessEvents(t *testing.T) {
	const user = 1
	now := time.Now()
	other := domain.UintPtr(2)

	got := Fold(user, []domain.Event{
		ev(domain.KindStarted, other, 2, 1, now),
		ev(domain.KindTaskAccepted, nil, 2, 1, now),
		{FromUserID: domain.UintPtr(user), ToUserID: user, Kind: domain.KindStarted, CreatedAt: now},
		ev(domain.KindMessage, domain.UintPtr(user), 9, 1, now),
	})
	assert.Empty(t, got)
}
