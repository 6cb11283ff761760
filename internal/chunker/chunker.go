// Package chunker splits long messages into pieces that fit a transport's
// message size limit.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// DiscordLimit is the maximum message length Discord accepts, in characters.
const DiscordLimit = 2000

// Split breaks text into pieces of at most limit characters. It prefers
// paragraph boundaries, then line boundaries, and only cuts inside a line
// when a single line is too long. Text within the limit is returned as is.
func Split(text string, limit int) []string {
	if text == "" {
		return nil
	}
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}
	return mergeBlocks(splitBlocks(text), limit)
}

// splitBlocks splits text on blank lines.
func splitBlocks(text string) []string {
	var blocks []string
	for _, b := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(b) != "" {
			blocks = append(blocks, strings.Trim(b, "\n"))
		}
	}
	return blocks
}

// mergeBlocks packs consecutive blocks into pieces and splits blocks that do
// not fit on their own.
func mergeBlocks(blocks []string, limit int) []string {
	var (
		pieces []string
		accum  string
	)
	flush := func() {
		if accum != "" {
			pieces = append(pieces, accum)
			accum = ""
		}
	}

	for _, b := range blocks {
		if utf8.RuneCountInString(b) > limit {
			flush()
			pieces = append(pieces, splitLines(b, limit)...)
			continue
		}
		if accum == "" {
			accum = b
			continue
		}
		combined := accum + "\n\n" + b
		if utf8.RuneCountInString(combined) <= limit {
			accum = combined
		} else {
			flush()
			accum = b
		}
	}
	flush()
	return pieces
}

// splitLines packs lines into pieces, hard-splitting lines over limit.
func splitLines(text string, limit int) []string {
	var (
		pieces  []string
		current []string
		curLen  int
	)
	flush := func() {
		if len(current) > 0 {
			pieces = append(pieces, strings.Join(current, "\n"))
			current, curLen = nil, 0
		}
	}

	for _, line := range strings.Split(text, "\n") {
		n := utf8.RuneCountInString(line)
		if n > limit {
			flush()
			pieces = append(pieces, hardSplit(line, limit)...)
			continue
		}
		sep := 0
		if len(current) > 0 {
			sep = 1
		}
		if curLen+sep+n > limit {
			flush()
			sep = 0
		}
		current = append(current, line)
		curLen += sep + n
	}
	flush()
	return pieces
}

// hardSplit cuts line into runs of at most limit runes.
func hardSplit(line string, limit int) []string {
	var pieces []string
	runes := []rune(line)
	for len(runes) > limit {
		pieces = append(pieces, string(runes[:limit]))
		runes = runes[limit:]
	}
	if len(runes) > 0 {
		pieces = append(pieces, string(runes))
	}
	return pieces
}
