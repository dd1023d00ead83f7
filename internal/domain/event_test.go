package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestParseTag(t *testing.T) {
	tests := []struct {
		tag     string
		kind    EventKind
		payload []string
		ok      bool
	}{
		{"started:12", KindStarted, []string{"12"}, true},
		{"taskAccepted:X:50", KindTaskAccepted, []string{"X", "50"}, true},
		{"withdrawCompleted:300", KindWithdrawCompleted, []string{"300"}, true},
		{"taskRejected:", KindTaskRejected, []string{""}, true},
		{"started", "", nil, false},
		{"", "", nil, false},
		{"bogus:1", "", nil, false},
		{"Started:1", "", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			kind, payload, ok := ParseTag(tt.tag)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.payload, payload)
		})
	}
}

func TestTagParsesBack(t *testing.T) {
	events := []Event{
		{Kind: KindStarted, TaskID: UintPtr(12)},
		{Kind: KindTaskAccepted, TaskName: "Survey", Amount: Money(decimal.NewFromInt(50))},
		{Kind: KindTaskStartedNotice, Body: "w@example.com", TaskName: "Survey", Amount: Money(decimal.NewFromInt(50))},
		{Kind: KindWithdrawRequested, Amount: Money(decimal.RequireFromString("300.5"))},
	}
	for _, ev := range events {
		kind, payload, ok := ParseTag(ev.Tag())
		assert.True(t, ok, ev.Tag())
		assert.Equal(t, ev.Kind, kind)
		assert.NotEmpty(t, payload)
	}

	// Free text messages are not tags.
	_, _, ok := ParseTag((&Event{Kind: KindMessage, Body: "hello there"}).Tag())
	assert.False(t, ok)
}
