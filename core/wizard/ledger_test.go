package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeletionLedger_TrackDeleted(t *testing.T) {
	l := NewDeletionLedger()
	assert.True(t, l.IsEmpty())

	assert.False(t, l.TrackDeleted(KindSessions, ""), "local-only entities are not tracked")
	assert.True(t, l.TrackDeleted(KindSessions, "s1"))
	assert.False(t, l.TrackDeleted(KindSessions, "s1"), "duplicates are ignored")
	assert.True(t, l.TrackDeleted(KindSessions, "s2"))
	assert.True(t, l.TrackDeleted(KindMedia, "m1"))

	assert.Equal(t, []string{"s1", "s2"}, l.Pending(KindSessions))
	assert.Empty(t, l.Pending(KindTickets))
	assert.Equal(t, map[EntityKind][]string{KindSessions: {"s1", "s2"}, KindMedia: {"m1"}}, l.All())
	assert.False(t, l.IsEmpty())
}

func TestDeletionLedger_Acknowledge(t *testing.T) {
	l := NewDeletionLedger()
	l.TrackDeleted(KindSessions, "s1")
	sent := l.Pending(KindSessions)

	// deleted while the request was in flight
	l.TrackDeleted(KindSessions, "s2")
	l.TrackDeleted(KindPolicies, "p1")

	l.Acknowledge(KindSessions, sent)
	assert.Equal(t, []string{"s2"}, l.Pending(KindSessions))
	assert.Equal(t, []string{"p1"}, l.Pending(KindPolicies), "other kinds are untouched")

	l.Acknowledge(KindSessions, []string{"s2"})
	assert.NotContains(t, l.All(), KindSessions)

	l.Reset()
	assert.True(t, l.IsEmpty())
}
