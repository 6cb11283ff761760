package quote

import "github.com/rcliao/roombot/internal/model"

// WindowSize bounds the number of tracked emissions.
const WindowSize = 100

// EmissionWindow holds the most recently posted quotes, newest first.
type EmissionWindow []model.TrackedEmission

// Push inserts e at the head and evicts from the tail beyond WindowSize.
func (w EmissionWindow) Push(e model.TrackedEmission) EmissionWindow {
	out := make(EmissionWindow, 0, min(len(w)+1, WindowSize+1))
	out = append(out, e)
	out = append(out, w...)
	for len(out) > WindowSize {
		out = out[:len(out)-1]
	}
	return out
}

// Resolve returns the quote id posted as eventID, scanning newest first.
func (w EmissionWindow) Resolve(eventID string) (int, bool) {
	for _, e := range w {
		if e.EventID == eventID {
			return e.QuoteID, true
		}
	}
	return 0, false
}
