// Package model defines the quote record types persisted by the quote plugin.
package model

import (
	"slices"
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// CurrentQuoteVersion is the schema version of quotes whose lines have been
// parsed from their raw text.
const CurrentQuoteVersion = 2

// Quote origin kinds.
const (
	KindLocal  = "local"
	KindRemote = "remote"
)

// Line kinds.
const (
	LineMessage = "message"
	LineAction  = "action"
)

// Line is one utterance of a quote.
type Line struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Kind    string `json:"kind"`
}

// Quote is a stored quote. ID is assigned once and never reused.
type Quote struct {
	ID        int            `json:"id"`
	Kind      string         `json:"kind"`
	Text      string         `json:"text"`
	URL       string         `json:"url,omitempty"`
	Channel   string         `json:"channel,omitempty"`
	Room      string         `json:"room,omitempty"`
	User      string         `json:"user,omitempty"`
	AddedBy   string         `json:"added_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	Version   int            `json:"version"`
	Lines     []Line         `json:"lines,omitempty"`
	Deleted   bool           `json:"deleted"`
	Rank      int            `json:"rank"`
	Reactions map[string]int `json:"reactions,omitempty"`
	Members   []string       `json:"members,omitempty"`
}

// Matches reports whether every term occurs in the raw text, ignoring case.
func (q *Quote) Matches(terms []string) bool {
	text := cases.Fold().String(q.Text)
	for _, term := range terms {
		if !strings.Contains(text, cases.Fold().String(term)) {
			return false
		}
	}
	return true
}

// AddReaction counts one more occurrence of symbol.
func (q *Quote) AddReaction(symbol string) {
	if q.Reactions == nil {
		q.Reactions = make(map[string]int)
	}
	q.Reactions[symbol]++
}

// Speakers returns the distinct speakers of the lines in order of appearance.
func (q *Quote) Speakers() []string {
	var out []string
	for _, l := range q.Lines {
		if l.Speaker != "" && !slices.Contains(out, l.Speaker) {
			out = append(out, l.Speaker)
		}
	}
	return out
}

// Legacy reports whether the quote predates parsed lines.
func (q *Quote) Legacy() bool {
	return q.Version < CurrentQuoteVersion
}

// TrackedEmission links a posted message to the quote it displayed.
type TrackedEmission struct {
	EventID   string    `json:"event_id"`
	QuoteID   int       `json:"quote_id"`
	EmittedAt time.Time `json:"emitted_at"`
}

// Expired reports whether the emission is older than maxAge at now.
func (e TrackedEmission) Expired(maxAge time.Duration, now time.Time) bool {
	return e.EmittedAt.Before(now.Add(-maxAge))
}
