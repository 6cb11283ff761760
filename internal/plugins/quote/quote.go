// Package quote stores quotes and posts them randomly, by id or by search
// term. Reactions to posted quotes are counted on the quote.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/rcliao/roombot/internal/model"
	"github.com/rcliao/roombot/internal/plugin"
	"github.com/rcliao/roombot/internal/store"
	"github.com/rcliao/roombot/internal/transport"
)

// Name is the plugin name and the stem of its data and config files.
const Name = "quote"

// Record store keys.
const (
	keyQuotes       = "quotes"
	keyTracked      = "tracked_quotes"
	keyLinks        = "nick_links"
	keyStoreVersion = "store_version"
)

// Config options.
const (
	optRooms           = "rooms"
	optLinkFuzziness   = "link_fuzziness"
	optLegacyFuzziness = "legacy_link_fuzziness"
)

type service struct {
	plugin *plugin.Plugin
	store  *store.Store
	logger *slog.Logger

	linkFuzziness       int
	legacyLinkFuzziness int

	now  func() time.Time
	intn func(n int) int
}

// New loads the quote plugin. It satisfies plugin.Loader.
func New(opts plugin.Options) (*plugin.Plugin, error) {
	s, err := newService(opts)
	if err != nil {
		return nil, err
	}
	return s.plugin, nil
}

func newService(opts plugin.Options) (*service, error) {
	p, err := plugin.New(Name, "General", "Store (more or less) funny quotes and access them randomly or by search term", opts)
	if err != nil {
		return nil, err
	}

	for _, opt := range []struct {
		name string
		def  any
	}{
		{optRooms, nil},
		{optLinkFuzziness, 80},
		{optLegacyFuzziness, 55},
	} {
		if err := p.AddConfig(opt.name, opt.def, false); err != nil {
			return nil, fmt.Errorf("quote config: %w", err)
		}
	}

	s := &service{
		plugin:              p,
		store:               p.Store(),
		logger:              p.Logger(),
		linkFuzziness:       p.Config().Int(optLinkFuzziness),
		legacyLinkFuzziness: p.Config().Int(optLegacyFuzziness),
		now:                 time.Now,
		intn:                rand.IntN,
	}

	rooms := p.Config().Strings(optRooms)
	p.AddCommand("quote", plugin.HandlerFunc(s.quoteCommand), "Post quotes, either randomly, by id, or by search string", rooms...)
	p.AddCommand("quote_detail", plugin.HandlerFunc(s.detailCommand), "View a detailed output of a specific quote", rooms...)
	p.AddCommand("quote_by", plugin.HandlerFunc(s.byCommand), "Post a quote by the user who added it or by its members: quote_by <user|members> <value...>", rooms...)
	p.AddCommand("quote_add", plugin.HandlerFunc(s.addCommand), "Add a quote", rooms...)
	p.AddCommand("quote_del", plugin.HandlerFunc(s.deleteCommand), "Delete a quote (can be restored)", rooms...)
	p.AddCommand("quote_restore", plugin.HandlerFunc(s.restoreCommand), "Restore a quote", rooms...)
	p.AddCommand("quote_links", plugin.HandlerFunc(s.linksCommand), "Toggle automatic nickname linking", rooms...)
	p.AddCommand("quote_replace", plugin.HandlerFunc(s.replaceCommand), "Replace a specific quote with the supplied text - destructive, can not be reverted", rooms...)
	p.AddCommand("quote_upgrade", plugin.HandlerFunc(s.upgradeCommand), "Upgrade all quotes to the most recent version", rooms...)
	p.AddHook(transport.EventReaction, plugin.HandlerFunc(s.reactionHook), rooms...)

	return s, nil
}

func readQuotes(st *store.Store) (map[int]*model.Quote, error) {
	quotes := make(map[int]*model.Quote)
	if _, err := st.Read(keyQuotes, &quotes); err != nil {
		return nil, fmt.Errorf("read quotes: %w", err)
	}
	return quotes, nil
}

func readWindow(st *store.Store) (EmissionWindow, error) {
	var w EmissionWindow
	if _, err := st.Read(keyTracked, &w); err != nil {
		return nil, fmt.Errorf("read tracked quotes: %w", err)
	}
	return w, nil
}

func (s *service) linksEnabled() bool {
	var enabled bool
	if _, err := s.store.Read(keyLinks, &enabled); err != nil {
		s.logger.Warn("could not read nick link setting", "error", err)
	}
	return enabled
}

// post sends q to the call's room, then counts the post in the quote's rank
// and tracks the message for reactions.
func (s *service) post(ctx context.Context, call *plugin.Call, q *model.Quote, caption string) {
	text := s.display(ctx, call, q)
	if caption != "" {
		text += "\n" + caption
	}
	eventID, ok := s.plugin.ReplyNotice(ctx, call, text)
	if !ok {
		return
	}

	s.store.WithLock(func() {
		quotes, err := readQuotes(s.store)
		if err != nil {
			s.logger.Error("could not track posted quote", "quote", q.ID, "error", err)
			return
		}
		window, err := readWindow(s.store)
		if err != nil {
			s.logger.Warn("dropping unreadable tracked quotes", "error", err)
			window = nil
		}
		if stored, ok := quotes[q.ID]; ok {
			stored.Rank++
		}
		window = window.Push(model.TrackedEmission{EventID: eventID, QuoteID: q.ID, EmittedAt: s.now()})
		s.store.StoreAll(map[string]any{keyQuotes: quotes, keyTracked: window})
	})
}
