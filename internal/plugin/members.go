package plugin

import (
	"context"
	"math"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"

	"github.com/rcliao/roombot/internal/transport"
)

// Strictness selects how a name is compared against room members.
type Strictness int

const (
	// Loose compares case-folded names.
	Loose Strictness = iota
	// Strict requires an exact, case-sensitive match.
	Strict
	// Fuzzy accepts the closest name whose similarity reaches the threshold.
	Fuzzy
)

// DefaultFuzziness is the minimum similarity (0-100) for a fuzzy match.
const DefaultFuzziness = 75

// FindMember matches name against the user id and display name of each
// member.
func FindMember(members []transport.Member, name string, strictness Strictness, fuzziness int) (transport.Member, bool) {
	switch strictness {
	case Strict:
		for _, m := range members {
			if m.UserID == name || m.DisplayName == name {
				return m, true
			}
		}
	case Fuzzy:
		best, bestScore := transport.Member{}, -1
		for _, m := range members {
			score := max(Similarity(m.UserID, name), Similarity(m.DisplayName, name))
			if score > bestScore {
				best, bestScore = m, score
			}
		}
		if bestScore >= fuzziness {
			return best, true
		}
	default:
		want := fold(name)
		for _, m := range members {
			if fold(m.UserID) == want || fold(m.DisplayName) == want {
				return m, true
			}
		}
	}
	return transport.Member{}, false
}

// Similarity scores two names from 0 (unrelated) to 100 (equal after case
// folding) by edit distance relative to the longer name.
func Similarity(a, b string) int {
	a, b = fold(a), fold(b)
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 100
	}
	d := levenshtein.ComputeDistance(a, b)
	return int(math.Round(100 * float64(longest-d) / float64(longest)))
}

func fold(s string) string {
	return cases.Fold().String(s)
}

// IsUserInRoom looks name up among the members of the call's room.
func (p *Plugin) IsUserInRoom(ctx context.Context, call *Call, name string, strictness Strictness, fuzziness int) (transport.Member, bool) {
	members, err := call.Transport.RoomMembers(ctx, call.RoomID)
	if err != nil {
		p.logger.Warn("could not list room members", "room", call.RoomID, "error", err)
		return transport.Member{}, false
	}
	return FindMember(members, name, strictness, fuzziness)
}

// LinkUser renders a mention for name when it resolves to a room member.
func (p *Plugin) LinkUser(ctx context.Context, call *Call, name string, strictness Strictness, fuzziness int) (string, bool) {
	m, ok := p.IsUserInRoom(ctx, call, name, strictness, fuzziness)
	if !ok {
		return "", false
	}
	return call.Transport.Mention(m), true
}
