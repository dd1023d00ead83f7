package withdraw

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"task_wallet/internal/apperr"
	"task_wallet/internal/domain"
)

func TestSetPins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.worker(t, "w@example.com", 0, 0)

	updates, err := f.svc.SetPins(ctx, PinsInput{Email: "W@Example.com", Pin4: "1234", Pin5: "12345"})
	require.NoError(t, err)
	assert.Equal(t, []string{"verifyPin:1234", "servicePin:12345"}, updates)

	// Updating one PIN keeps the other.
	_, err = f.svc.SetPins(ctx, PinsInput{Email: u.Email, Pin5: "54321"})
	require.NoError(t, err)
	rec, err := f.st.Pins().Get(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234", rec.VerifyPin)
	assert.Equal(t, "54321", rec.ServicePin)

	events, err := f.st.Events().ListToUser(ctx, u.ID, domain.KindPinsActivated)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "pinsActivated:servicePin:54321", events[0].Tag())
	assert.Contains(t, f.mail.subjects(u.Email), "Your Withdrawal PINs Have Been Updated")
}

func TestSetPinsValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.worker(t, "w@example.com", 0, 0)

	tests := []struct {
		name string
		in   PinsInput
		want error
	}{
		{"no pins", PinsInput{Email: "w@example.com"}, nil},
		{"short verify pin", PinsInput{Email: "w@example.com", Pin4: "123"}, nil},
		{"letters in service pin", PinsInput{Email: "w@example.com", Pin5: "12a45"}, nil},
		{"missing email", PinsInput{Pin4: "1234"}, nil},
		{"unknown user", PinsInput{Email: "nobody@example.com", Pin4: "1234"}, apperr.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.SetPins(ctx, tt.in)
			require.Error(t, err)
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
				return
			}
			assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))
		})
	}
}

func TestURLs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := f.worker(t, "w@example.com", 0, 0)

	slots, err := f.svc.URLs(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, []string{"", "", "", "", ""}, slots)

	saved, err := f.svc.SetURLs(ctx, u.Email, []string{" a.example ", "", "b.example"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example", "b.example"}, saved)

	slots, err = f.svc.URLs(ctx, u.Email)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example", "b.example", "", "", ""}, slots)
	assert.Contains(t, f.mail.subjects("admin@example.com"), "Withdraw URLs Updated")

	_, err = f.svc.SetURLs(ctx, u.Email, []string{"1", "2", "3", "4", "5", "6"})
	assert.Equal(t, apperr.CodeInvalidInput, apperr.CodeOf(err))

	_, err = f.svc.URLs(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, apperr.ErrUserNotFound)
}
