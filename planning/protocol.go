package planning

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// The model is asked to wrap structured content in bracket tags:
//
//	[THINKING] ... [/THINKING]
//	[TITLE] ... [/TITLE]
//	[CHOICES] ... [/CHOICES]
//	[OUTLINE] ... [/OUTLINE]
//
// Tags are matched literally and case-sensitively. A block runs from an open
// tag to the nearest close tag after it. The first block of each kind is
// interpreted; every block of every kind is removed from the body.

type blockKind string

const (
	blockThinking blockKind = "THINKING"
	blockTitle    blockKind = "TITLE"
	blockChoices  blockKind = "CHOICES"
	blockOutline  blockKind = "OUTLINE"
)

// Order matters for body scrubbing: each kind is removed from what the
// previous kinds left behind.
var blockKinds = []blockKind{blockThinking, blockTitle, blockChoices, blockOutline}

func (k blockKind) openTag() string  { return "[" + string(k) + "]" }
func (k blockKind) closeTag() string { return "[/" + string(k) + "]" }

// FallbackThinkingSteps is used when a reply carries no THINKING block.
var FallbackThinkingSteps = []string{"Analyzing your request...", "Formulating response..."}

// ChoicePrefix starts every synthesized choice value.
const ChoicePrefix = "I want to explore: "

type block struct {
	start, end int // span of the whole block including both tags
	inner      string
}

// scanBlocks returns the non-overlapping blocks of kind in s, left to right.
func scanBlocks(s string, kind blockKind) []block {
	open, closing := kind.openTag(), kind.closeTag()
	var blocks []block
	pos := 0
	for {
		i := strings.Index(s[pos:], open)
		if i < 0 {
			return blocks
		}
		start := pos + i
		innerStart := start + len(open)
		j := strings.Index(s[innerStart:], closing)
		if j < 0 {
			// no close tag after this open tag, so none after any later one either
			return blocks
		}
		innerEnd := innerStart + j
		end := innerEnd + len(closing)
		blocks = append(blocks, block{start: start, end: end, inner: s[innerStart:innerEnd]})
		pos = end
	}
}

func firstBlock(s string, kind blockKind) (string, bool) {
	blocks := scanBlocks(s, kind)
	if len(blocks) == 0 {
		return "", false
	}
	return blocks[0].inner, true
}

func removeBlocks(s string, kind blockKind) string {
	blocks := scanBlocks(s, kind)
	if len(blocks) == 0 {
		return s
	}
	var b strings.Builder
	last := 0
	for _, blk := range blocks {
		b.WriteString(s[last:blk.start])
		last = blk.end
	}
	b.WriteString(s[last:])
	return b.String()
}

// Parse splits a raw model reply into its parts. It never fails: missing or
// malformed blocks become absent fields or the documented fallback.
func Parse(raw string) ParsedResponse {
	return ParseAt(raw, time.Now())
}

// ParseAt is Parse with the clock used for outline item identifiers.
func ParseAt(raw string, now time.Time) ParsedResponse {
	var res ParsedResponse

	if inner, ok := firstBlock(raw, blockThinking); ok {
		res.ThinkingSteps = thinkingSteps(inner)
	} else {
		res.ThinkingSteps = append([]string(nil), FallbackThinkingSteps...)
	}

	if inner, ok := firstBlock(raw, blockTitle); ok {
		title := strings.TrimSpace(inner)
		res.SuggestedTitle = &title
	}

	if inner, ok := firstBlock(raw, blockChoices); ok {
		res.Choices = parseChoices(inner)
	}

	if inner, ok := firstBlock(raw, blockOutline); ok {
		res.OutlineItems = parseOutline(inner, now)
	}

	body := raw
	for _, kind := range blockKinds {
		body = removeBlocks(body, kind)
	}
	res.Body = strings.TrimSpace(body)

	return res
}

func thinkingSteps(inner string) []string {
	steps := []string{}
	for _, line := range strings.Split(strings.TrimSpace(inner), "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "-")
		line = strings.TrimPrefix(line, "•")
		line = strings.TrimSpace(line)
		if line != "" {
			steps = append(steps, line)
		}
	}
	return steps
}

// splitChunks breaks the choices interior before every line that opens with
// bold markup.
func splitChunks(text string) []string {
	var chunks []string
	start := 0
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && strings.HasPrefix(text[i+1:], "**") {
			chunks = append(chunks, text[start:i])
			start = i + 1
		}
	}
	chunks = append(chunks, text[start:])
	return chunks
}

// boldText returns the first **...** span with at least one character inside.
func boldText(line string) (string, bool) {
	for s := 0; s+2 <= len(line); s++ {
		if line[s] != '*' || line[s+1] != '*' {
			continue
		}
		rest := line[s+2:]
		if len(rest) < 3 {
			return "", false
		}
		if e := strings.Index(rest[1:], "**"); e >= 0 {
			return rest[:e+1], true
		}
	}
	return "", false
}

func parseChoices(inner string) []Choice {
	choices := []Choice{}
	for i, chunk := range splitChunks(strings.TrimSpace(inner)) {
		if chunk == "" {
			continue
		}
		lines := strings.Split(strings.TrimSpace(chunk), "\n")
		label := strings.TrimSpace(lines[0])
		if bold, ok := boldText(lines[0]); ok {
			label = strings.TrimSpace(bold)
		}
		if label == "" {
			continue
		}
		desc := strings.TrimSpace(strings.Join(lines[1:], " "))
		choices = append(choices, Choice{
			ID:          fmt.Sprintf("choice-%d", i),
			Label:       label,
			Value:       ChoicePrefix + label + ". " + desc,
			Description: desc,
		})
	}
	return choices
}

func isOutlineMarker(r rune) bool {
	switch r {
	case '.', '-', '*', '•':
		return true
	}
	return unicode.IsDigit(r) || unicode.IsSpace(r)
}

// StripOutlineMarker removes a leading run of enumeration characters
// (digits, periods, dashes, asterisks, bullets and whitespace).
func StripOutlineMarker(line string) string {
	return strings.TrimSpace(strings.TrimLeftFunc(line, isOutlineMarker))
}

func parseOutline(inner string, now time.Time) []OutlineItem {
	items := []OutlineItem{}
	stamp := now.UnixMilli()
	for _, line := range strings.Split(strings.TrimSpace(inner), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		items = append(items, OutlineItem{
			ID:    fmt.Sprintf("outline-%d-%d", stamp, len(items)),
			Title: StripOutlineMarker(line),
		})
	}
	return items
}
