package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/rcliao/roombot/internal/model"
	"github.com/rcliao/roombot/internal/plugin"
)

const (
	msgNoQuotes    = "Error: no quotes stored. See `help quote` how to use quote"
	msgSaveFailed  = "Error: could not save quotes"
	msgUnparseable = "Error: could not find any lines in that quote"
)

func (s *service) notice(ctx context.Context, call *plugin.Call, format string, args ...any) {
	s.plugin.ReplyNotice(ctx, call, fmt.Sprintf(format, args...))
}

// fail tells the room that quotes could not be read and hands err to the
// dispatcher.
func (s *service) fail(ctx context.Context, call *plugin.Call, err error) error {
	s.notice(ctx, call, "Error: quotes are unavailable")
	return err
}

func (s *service) quoteCommand(ctx context.Context, call *plugin.Call) error {
	quotes, err := readQuotes(s.store)
	if err != nil {
		return s.fail(ctx, call, err)
	}
	active := activeQuotes(quotes)
	if len(active) == 0 {
		s.notice(ctx, call, msgNoQuotes)
		return nil
	}

	args := call.Args
	if len(args) == 0 {
		s.post(ctx, call, active[s.intn(len(active))], "")
		return nil
	}
	if len(args) == 1 {
		if id, ok := parseID(args[0]); ok {
			q, found := findByID(active, id)
			if !found {
				s.notice(ctx, call, "Quote %d not found", id)
				return nil
			}
			s.post(ctx, call, q, "")
			return nil
		}
	}

	terms, n := searchTerms(args)
	matches := Search(active, terms)
	if len(matches) == 0 {
		s.notice(ctx, call, "No quote found matching %s", strings.Join(terms, ", "))
		return nil
	}
	s.postMatch(ctx, call, matches, n)
	return nil
}

// postMatch posts the n-th match, or a random one when n is out of range.
func (s *service) postMatch(ctx context.Context, call *plugin.Call, matches []*model.Quote, n int) {
	if n < 1 || n > len(matches) {
		n = s.intn(len(matches)) + 1
	}
	s.post(ctx, call, matches[n-1], fmt.Sprintf("Match %d of %d", n, len(matches)))
}

func (s *service) byCommand(ctx context.Context, call *plugin.Call) error {
	const usage = "Usage: quote_by <user|members> <value...>"
	if len(call.Args) < 2 {
		s.notice(ctx, call, usage)
		return nil
	}

	quotes, err := readQuotes(s.store)
	if err != nil {
		return s.fail(ctx, call, err)
	}
	attr, values := call.Args[0], call.Args[1:]
	matches, err := FilterByAttribute(activeQuotes(quotes), attr, values)
	if err != nil {
		s.notice(ctx, call, usage)
		return nil
	}
	if len(matches) == 0 {
		s.notice(ctx, call, "No quote found with %s %s", attr, strings.Join(values, " "))
		return nil
	}
	s.postMatch(ctx, call, matches, 0)
	return nil
}

func (s *service) detailCommand(ctx context.Context, call *plugin.Call) error {
	const usage = "Usage: quote_detail <quote_id>"
	if len(call.Args) != 1 {
		s.notice(ctx, call, usage)
		return nil
	}
	id, ok := parseID(call.Args[0])
	if !ok {
		s.notice(ctx, call, usage)
		return nil
	}

	quotes, err := readQuotes(s.store)
	if err != nil {
		return s.fail(ctx, call, err)
	}
	q, ok := quotes[id]
	if !ok {
		s.notice(ctx, call, "Quote %d not found", id)
		return nil
	}
	s.plugin.ReplyNotice(ctx, call, s.details(ctx, call, q))
	return nil
}

func (s *service) addCommand(ctx context.Context, call *plugin.Call) error {
	text := call.ArgText()
	if text == "" {
		s.notice(ctx, call, "Usage: quote_add <quote_text>")
		return nil
	}
	raw, lines := parseInput(text)
	if len(lines) == 0 {
		s.notice(ctx, call, msgUnparseable)
		return nil
	}

	var (
		q     *model.Quote
		saved bool
		err   error
	)
	s.store.WithLock(func() {
		var quotes map[int]*model.Quote
		if quotes, err = readQuotes(s.store); err != nil {
			return
		}
		q = &model.Quote{
			ID:        nextID(quotes),
			Kind:      model.KindLocal,
			Text:      raw,
			Room:      call.RoomID,
			AddedBy:   call.Event.Sender,
			CreatedAt: s.now(),
			Version:   model.CurrentQuoteVersion,
			Lines:     lines,
		}
		q.Members = q.Speakers()
		quotes[q.ID] = q
		saved = s.store.Store(keyQuotes, quotes)
	})
	if err != nil {
		return s.fail(ctx, call, err)
	}
	if !saved {
		s.notice(ctx, call, msgSaveFailed)
		return nil
	}

	s.logger.Info("quote added", "quote", q.ID, "room", call.RoomID, "user", call.Event.Sender)
	s.notice(ctx, call, "Quote %d added", q.ID)
	return nil
}

func (s *service) replaceCommand(ctx context.Context, call *plugin.Call) error {
	const usage = "Usage: quote_replace <quote_id> <quote_text>"
	if len(call.Args) < 2 {
		s.notice(ctx, call, usage)
		return nil
	}
	id, ok := parseID(call.Args[0])
	if !ok {
		s.notice(ctx, call, usage)
		return nil
	}
	rest := strings.TrimPrefix(call.ArgText(), call.Args[0])
	raw, lines := parseInput(rest)
	if len(lines) == 0 {
		s.notice(ctx, call, msgUnparseable)
		return nil
	}

	var (
		old, updated model.Quote
		found, saved bool
		err          error
	)
	s.store.WithLock(func() {
		var quotes map[int]*model.Quote
		if quotes, err = readQuotes(s.store); err != nil {
			return
		}
		q, ok := quotes[id]
		if !ok {
			return
		}
		found = true
		old = *q
		q.Text = raw
		q.Lines = lines
		q.Version = model.CurrentQuoteVersion
		q.Members = q.Speakers()
		updated = *q
		saved = s.store.Store(keyQuotes, quotes)
	})
	switch {
	case err != nil:
		return s.fail(ctx, call, err)
	case !found:
		s.notice(ctx, call, "Quote %d not found", id)
		return nil
	case !saved:
		s.notice(ctx, call, msgSaveFailed)
		return nil
	}

	s.notice(ctx, call, "Quote %d replaced\nOld:\n%s\n\nNew:\n%s",
		id, s.display(ctx, call, &old), s.display(ctx, call, &updated))
	return nil
}

func (s *service) deleteCommand(ctx context.Context, call *plugin.Call) error {
	return s.setDeleted(ctx, call, true)
}

func (s *service) restoreCommand(ctx context.Context, call *plugin.Call) error {
	return s.setDeleted(ctx, call, false)
}

// setDeleted flips the deleted flag. A quote already in the requested state
// is left alone and nothing is written.
func (s *service) setDeleted(ctx context.Context, call *plugin.Call, deleted bool) error {
	verb, trigger := "deleted", "quote_del"
	if !deleted {
		verb, trigger = "restored", "quote_restore"
	}
	if len(call.Args) != 1 {
		s.notice(ctx, call, "Usage: %s <quote_id>", trigger)
		return nil
	}
	id, ok := parseID(call.Args[0])
	if !ok {
		s.notice(ctx, call, "Usage: %s <quote_id>", trigger)
		return nil
	}

	var (
		found, changed, saved bool
		err                   error
	)
	s.store.WithLock(func() {
		var quotes map[int]*model.Quote
		if quotes, err = readQuotes(s.store); err != nil {
			return
		}
		q, ok := quotes[id]
		if !ok {
			return
		}
		found = true
		if q.Deleted == deleted {
			return
		}
		q.Deleted = deleted
		changed = true
		saved = s.store.Store(keyQuotes, quotes)
	})
	switch {
	case err != nil:
		return s.fail(ctx, call, err)
	case !found:
		s.notice(ctx, call, "Quote %d not found", id)
	case !changed:
		s.notice(ctx, call, "Quote %d is already %s", id, verb)
	case !saved:
		s.notice(ctx, call, msgSaveFailed)
	default:
		s.logger.Info("quote "+verb, "quote", id, "user", call.Event.Sender)
		s.notice(ctx, call, "Quote %d %s", id, verb)
	}
	return nil
}

func (s *service) linksCommand(ctx context.Context, call *plugin.Call) error {
	var enabled, saved bool
	s.store.WithLock(func() {
		enabled = !s.linksEnabled()
		saved = s.store.Store(keyLinks, enabled)
	})
	if !saved {
		s.notice(ctx, call, msgSaveFailed)
		return nil
	}
	state := "off"
	if enabled {
		state = "on"
	}
	s.notice(ctx, call, "Nick linking %s", state)
	return nil
}

func (s *service) upgradeCommand(ctx context.Context, call *plugin.Call) error {
	res, err := Upgrade(s.store)
	if err != nil {
		return s.fail(ctx, call, err)
	}
	s.logger.Info("quotes upgraded", "upgraded", res.Upgraded, "failed", res.Failed, "total", res.Total, "saved", res.Saved)

	switch {
	case !res.Saved:
		s.notice(ctx, call, msgSaveFailed)
	case res.Complete():
		s.notice(ctx, call, "Success: upgraded %d of %d quotes to version %d", res.Upgraded, res.Total, model.CurrentQuoteVersion)
	default:
		s.notice(ctx, call, "Error: upgraded %d of %d quotes to version %d, %d failed", res.Upgraded, res.Total, model.CurrentQuoteVersion, res.Failed)
	}
	return nil
}

// reactionHook counts a reaction on the quote the reacted-to message showed.
// Reactions to anything else are ignored.
func (s *service) reactionHook(ctx context.Context, call *plugin.Call) error {
	ev := call.Event
	if ev.RelatesTo == "" || ev.Key == "" {
		return nil
	}

	var err error
	s.store.WithLock(func() {
		var window EmissionWindow
		if window, err = readWindow(s.store); err != nil {
			return
		}
		id, ok := window.Resolve(ev.RelatesTo)
		if !ok {
			return
		}
		var quotes map[int]*model.Quote
		if quotes, err = readQuotes(s.store); err != nil {
			return
		}
		q, ok := quotes[id]
		if !ok {
			return
		}
		q.AddReaction(ev.Key)
		if s.store.Store(keyQuotes, quotes) {
			s.logger.Debug("reaction counted", "quote", id, "reaction", ev.Key)
		}
	})
	return err
}
