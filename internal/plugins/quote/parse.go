package quote

import (
	"regexp"
	"strings"

	"github.com/rcliao/roombot/internal/model"
)

var (
	lineSeparator  = regexp.MustCompile(`\r\n?|\n| [|] `)
	blockSeparator = regexp.MustCompile(`\r\n?|\n`)
)

// ParseLines splits raw quote text into lines. Lines are separated by line
// breaks or " | ". A line starting with "*" is an action by the following
// word; any other line is a message by its first word, with IRC-style
// "<nick>", "<@nick>" and "<+nick>" decorations removed.
func ParseLines(text string) []model.Line {
	var lines []model.Line
	for _, raw := range lineSeparator.Split(text, -1) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if rest, ok := strings.CutPrefix(raw, "*"); ok {
			speaker, msg, _ := strings.Cut(strings.TrimSpace(rest), " ")
			lines = append(lines, model.Line{Speaker: speaker, Text: strings.TrimSpace(msg), Kind: model.LineAction})
			continue
		}
		speaker, msg, _ := strings.Cut(raw, " ")
		lines = append(lines, model.Line{Speaker: cleanSpeaker(speaker), Text: strings.TrimSpace(msg), Kind: model.LineMessage})
	}
	return lines
}

func cleanSpeaker(s string) string {
	if inner, ok := strings.CutPrefix(s, "<"); ok {
		inner = strings.TrimSuffix(inner, ">")
		return strings.TrimLeft(inner, "@+")
	}
	return strings.TrimSuffix(s, ">")
}

// parseInput normalizes the text given to quote_add and quote_replace.
// Multi-line text without " | " is read as alternating speaker and message
// lines, as produced by copying from a chat client. Everything else is the
// line form understood by ParseLines.
func parseInput(text string) (string, []model.Line) {
	text = strings.TrimSpace(text)
	if strings.ContainsAny(text, "\r\n") && !strings.Contains(text, " | ") {
		return parseBlock(text)
	}
	return text, ParseLines(text)
}

func parseBlock(text string) (string, []model.Line) {
	var rows []string
	for _, row := range blockSeparator.Split(text, -1) {
		if row = strings.TrimSpace(row); row != "" {
			rows = append(rows, row)
		}
	}

	var (
		lines []model.Line
		parts []string
	)
	for i := 0; i+1 < len(rows); i += 2 {
		lines = append(lines, model.Line{Speaker: rows[i], Text: rows[i+1], Kind: model.LineMessage})
		parts = append(parts, "<"+rows[i]+"> "+rows[i+1])
	}
	return strings.Join(parts, " | "), lines
}
