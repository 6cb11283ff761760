package quote

import (
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"golang.org/x/text/cases"

	"github.com/rcliao/roombot/internal/model"
)

// Attribute names accepted by FilterByAttribute.
const (
	AttrUser    = "user"
	AttrMembers = "members"
)

// ErrUnknownAttribute is returned for an attribute FilterByAttribute does not know.
var ErrUnknownAttribute = errors.New("unknown quote attribute")

// sortedIDs returns the ids of quotes in ascending order.
func sortedIDs(quotes map[int]*model.Quote) []int {
	ids := make([]int, 0, len(quotes))
	for id := range quotes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// activeQuotes returns the non-deleted quotes ordered by id.
func activeQuotes(quotes map[int]*model.Quote) []*model.Quote {
	var out []*model.Quote
	for _, id := range sortedIDs(quotes) {
		if q := quotes[id]; !q.Deleted {
			out = append(out, q)
		}
	}
	return out
}

func nextID(quotes map[int]*model.Quote) int {
	next := 1
	for id := range quotes {
		if id >= next {
			next = id + 1
		}
	}
	return next
}

func findByID(quotes []*model.Quote, id int) (*model.Quote, bool) {
	for _, q := range quotes {
		if q.ID == id {
			return q, true
		}
	}
	return nil, false
}

// Search returns the quotes whose text contains every term.
func Search(quotes []*model.Quote, terms []string) []*model.Quote {
	var out []*model.Quote
	for _, q := range quotes {
		if q.Matches(terms) {
			out = append(out, q)
		}
	}
	return out
}

// FilterByAttribute selects quotes by the user who added them or by the
// people taking part in them. For members every value has to be present.
func FilterByAttribute(quotes []*model.Quote, attr string, values []string) ([]*model.Quote, error) {
	var match func(*model.Quote) bool
	switch attr {
	case AttrUser:
		want := fold(strings.Join(values, " "))
		match = func(q *model.Quote) bool {
			return fold(q.AddedBy) == want || fold(q.User) == want
		}
	case AttrMembers:
		match = func(q *model.Quote) bool {
			members := make([]string, len(q.Members))
			for i, m := range q.Members {
				members[i] = fold(m)
			}
			for _, v := range values {
				if !slices.Contains(members, fold(v)) {
					return false
				}
			}
			return true
		}
	default:
		return nil, ErrUnknownAttribute
	}

	var out []*model.Quote
	for _, q := range quotes {
		if match(q) {
			out = append(out, q)
		}
	}
	return out, nil
}

// searchTerms splits args into search terms, keeping quoted substrings
// together. A trailing integer selects the n-th match and is not a term.
func searchTerms(args []string) ([]string, int) {
	n := 0
	if len(args) > 1 {
		if v, ok := parseID(args[len(args)-1]); ok {
			n = v
			args = args[:len(args)-1]
		}
	}
	joined := strings.Join(args, " ")
	// shlex treats '#' as the start of a comment.
	if strings.ContainsRune(joined, '#') {
		return args, n
	}
	terms, err := shlex.Split(joined)
	if err != nil || len(terms) == 0 {
		terms = args
	}
	return terms, n
}

// parseID accepts a non-empty string of ASCII digits.
func parseID(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

func fold(s string) string {
	return cases.Fold().String(s)
}
