package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestQuoteMatchesIsConjunctive(t *testing.T) {
	q := &Quote{Text: "<Alice> Hello | <bob> World"}

	assert.True(t, q.Matches(nil))
	assert.True(t, q.Matches([]string{"hello"}))
	assert.True(t, q.Matches([]string{"HELLO", "world"}))
	assert.False(t, q.Matches([]string{"hello", "moon"}))
	assert.True(t, q.Matches([]string{"alice> hello"}))
}

func TestAddReaction(t *testing.T) {
	q := &Quote{}
	q.AddReaction("👍")
	q.AddReaction("👍")
	q.AddReaction("😂")
	assert.Equal(t, map[string]int{"👍": 2, "😂": 1}, q.Reactions)
}

func TestSpeakers(t *testing.T) {
	q := &Quote{Lines: []Line{
		{Speaker: "alice", Text: "hi"},
		{Speaker: "bob", Text: "hey"},
		{Speaker: "alice", Text: "again", Kind: LineAction},
		{Speaker: "", Text: "orphan"},
	}}
	assert.Equal(t, []string{"alice", "bob"}, q.Speakers())
}

func TestLegacy(t *testing.T) {
	assert.True(t, (&Quote{}).Legacy())
	assert.True(t, (&Quote{Version: 1}).Legacy())
	assert.False(t, (&Quote{Version: CurrentQuoteVersion}).Legacy())
}

func TestTrackedEmissionExpired(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	e := TrackedEmission{EventID: "$a", QuoteID: 1, EmittedAt: now.Add(-2 * time.Hour)}

	assert.True(t, e.Expired(time.Hour, now))
	assert.False(t, e.Expired(3*time.Hour, now))
}
