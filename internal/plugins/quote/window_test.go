package quote

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/roombot/internal/model"
)

func TestWindowKeepsMostRecent(t *testing.T) {
	var w EmissionWindow
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= WindowSize+1; i++ {
		w = w.Push(model.TrackedEmission{EventID: fmt.Sprintf("$%d", i), QuoteID: i, EmittedAt: start.Add(time.Duration(i) * time.Second)})
	}

	require.Len(t, w, WindowSize)
	assert.Equal(t, "$101", w[0].EventID)
	assert.Equal(t, "$2", w[len(w)-1].EventID)

	_, ok := w.Resolve("$1")
	assert.False(t, ok, "oldest entry is evicted")
	id, ok := w.Resolve("$50")
	require.True(t, ok)
	assert.Equal(t, 50, id)
}

func TestWindowResolvesNewestFirst(t *testing.T) {
	var w EmissionWindow
	w = w.Push(model.TrackedEmission{EventID: "$same", QuoteID: 1})
	w = w.Push(model.TrackedEmission{EventID: "$same", QuoteID: 2})

	id, ok := w.Resolve("$same")
	require.True(t, ok)
	assert.Equal(t, 2, id)
}

func TestWindowPushDoesNotAlias(t *testing.T) {
	base := EmissionWindow{{EventID: "$a"}}
	next := base.Push(model.TrackedEmission{EventID: "$b"})
	assert.Equal(t, "$a", base[0].EventID)
	assert.Equal(t, []string{"$b", "$a"}, []string{next[0].EventID, next[1].EventID})
}
