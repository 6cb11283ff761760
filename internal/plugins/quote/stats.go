package quote

import (
	"fmt"

	"github.com/rcliao/roombot/internal/store"
)

// Stats summarizes a quote store.
type Stats struct {
	Total        int         `json:"total"`
	Active       int         `json:"active"`
	Deleted      int         `json:"deleted"`
	ByVersion    map[int]int `json:"by_version"`
	Reactions    int         `json:"reactions"`
	Tracked      int         `json:"tracked"`
	StoreVersion int         `json:"store_version"`
	NickLinks    bool        `json:"nick_links"`
}

// ReadStats counts the quotes held by st.
func ReadStats(st *store.Store) (Stats, error) {
	quotes, err := readQuotes(st)
	if err != nil {
		return Stats{}, err
	}
	window, err := readWindow(st)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{Total: len(quotes), ByVersion: make(map[int]int), Tracked: len(window)}
	for _, q := range quotes {
		if q.Deleted {
			stats.Deleted++
		} else {
			stats.Active++
		}
		stats.ByVersion[q.Version]++
		for _, n := range q.Reactions {
			stats.Reactions += n
		}
	}
	if _, err := st.Read(keyStoreVersion, &stats.StoreVersion); err != nil {
		return Stats{}, fmt.Errorf("read store version: %w", err)
	}
	if _, err := st.Read(keyLinks, &stats.NickLinks); err != nil {
		return Stats{}, fmt.Errorf("read nick links: %w", err)
	}
	return stats, nil
}
