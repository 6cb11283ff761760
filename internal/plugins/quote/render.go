package quote

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/rcliao/roombot/internal/model"
	"github.com/rcliao/roombot/internal/plugin"
	"github.com/rcliao/roombot/internal/transport"
)

var legacyNick = regexp.MustCompile(`<(\S+)>`)

// linker resolves speaker names to mentions of room members.
type linker struct {
	members []transport.Member
	tr      transport.Transport
}

func (l *linker) link(name string, fuzziness int) (string, bool) {
	if l == nil {
		return "", false
	}
	m, ok := plugin.FindMember(l.members, name, plugin.Fuzzy, fuzziness)
	if !ok {
		return "", false
	}
	return l.tr.Mention(m), true
}

// newLinker returns nil when linking is off or the room cannot be listed.
func (s *service) newLinker(ctx context.Context, call *plugin.Call) *linker {
	if call == nil || call.Transport == nil || !s.linksEnabled() {
		return nil
	}
	members, err := call.Transport.RoomMembers(ctx, call.RoomID)
	if err != nil {
		s.logger.Warn("could not list room members", "room", call.RoomID, "error", err)
		return nil
	}
	return &linker{members: members, tr: call.Transport}
}

// display renders a quote with its reactions.
func (s *service) display(ctx context.Context, call *plugin.Call, q *model.Quote) string {
	l := s.newLinker(ctx, call)

	var b strings.Builder
	fmt.Fprintf(&b, "Quote %d:\n", q.ID)
	if q.Kind == model.KindRemote && q.URL != "" {
		b.WriteString(q.URL)
		b.WriteString("\n")
	}
	if q.Legacy() {
		b.WriteString(s.legacyText(q.Text, l))
		b.WriteString("\n")
	} else {
		for _, line := range q.Lines {
			b.WriteString(s.renderLine(line, l))
			b.WriteString("\n")
		}
	}
	b.WriteString(renderReactions(q.Reactions))
	return strings.TrimRight(b.String(), "\n ")
}

func (s *service) legacyText(text string, l *linker) string {
	text = strings.NewReplacer("<@", "<", "<+", "<").Replace(text)
	text = strings.ReplaceAll(text, " | ", "\n")
	if l == nil {
		return text
	}
	seen := map[string]bool{}
	for _, m := range legacyNick.FindAllStringSubmatch(text, -1) {
		nick := m[1]
		if seen[nick] {
			continue
		}
		seen[nick] = true
		if mention, ok := l.link(nick, s.legacyLinkFuzziness); ok {
			text = strings.ReplaceAll(text, "<"+nick+">", mention)
		}
	}
	return text
}

func (s *service) renderLine(line model.Line, l *linker) string {
	speaker := "<" + line.Speaker + ">"
	if line.Kind == model.LineAction {
		speaker = "* " + line.Speaker
	}
	if mention, ok := l.link(line.Speaker, s.linkFuzziness); ok {
		speaker = mention
		if line.Kind == model.LineAction {
			speaker = "* " + mention
		}
	}
	if line.Text == "" {
		return speaker
	}
	return speaker + " " + line.Text
}

// renderReactions lists symbols in sorted order, with the count when above one.
func renderReactions(reactions map[string]int) string {
	symbols := make([]string, 0, len(reactions))
	for sym := range reactions {
		symbols = append(symbols, sym)
	}
	slices.Sort(symbols)

	parts := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if n := reactions[sym]; n == 1 {
			parts = append(parts, sym)
		} else {
			parts = append(parts, fmt.Sprintf("%s(%d)", sym, n))
		}
	}
	return strings.Join(parts, " ")
}

// details renders a quote with its bookkeeping fields.
func (s *service) details(ctx context.Context, call *plugin.Call, q *model.Quote) string {
	date := "unknown"
	if !q.CreatedAt.IsZero() {
		date = q.CreatedAt.Local().Format("2006-01-02 15:04:05")
	}

	var b strings.Builder
	b.WriteString(s.display(ctx, call, q))
	fmt.Fprintf(&b, "\nDate: %s", date)
	fmt.Fprintf(&b, "\nAdded by: %s", joinNonEmpty(q.User, q.AddedBy))
	fmt.Fprintf(&b, "\nAdded in: %s", joinNonEmpty(q.Channel, q.Room))
	fmt.Fprintf(&b, "\nRank: %d", q.Rank)
	fmt.Fprintf(&b, "\nVersion: %d", q.Version)
	if len(q.Members) > 0 {
		fmt.Fprintf(&b, "\nMembers: %s", strings.Join(q.Members, ", "))
	}
	if q.Deleted {
		b.WriteString("\nDeleted: yes")
	}
	return b.String()
}

func joinNonEmpty(values ...string) string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return "unknown"
	}
	return strings.Join(out, " / ")
}
