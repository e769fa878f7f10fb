package planning

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Empty(t *testing.T) {
	res := Parse("")

	assert.Equal(t, "", res.Body)
	assert.Equal(t, FallbackThinkingSteps, res.ThinkingSteps)
	assert.Nil(t, res.SuggestedTitle)
	assert.Nil(t, res.Choices)
	assert.Nil(t, res.OutlineItems)
}

func TestParse_TitleAndProse(t *testing.T) {
	res := Parse("[TITLE]Rate Cuts Won't Save Housing[/TITLE]\nSome prose.")

	title, ok := res.Title()
	require.True(t, ok)
	assert.Equal(t, "Rate Cuts Won't Save Housing", title)
	assert.Equal(t, "Some prose.", res.Body)
}

func TestParse_TitleIsTrimmedNotValidated(t *testing.T) {
	long := strings.Repeat("word ", 60)
	res := Parse("[TITLE]\n  " + long + "\n[/TITLE]")

	title, ok := res.Title()
	require.True(t, ok)
	assert.Equal(t, strings.TrimSpace(long), title)
}

func TestParse_Thinking(t *testing.T) {
	raw := "[THINKING]\n- Housing supply is the binding constraint\n• Rates matter less\n\n  -   \n[/THINKING]\nHere is my take."
	res := Parse(raw)

	assert.Equal(t, []string{"Housing supply is the binding constraint", "Rates matter less"}, res.ThinkingSteps)
	assert.Equal(t, "Here is my take.", res.Body)
}

func TestParse_EmptyThinkingBlockIsNotFallback(t *testing.T) {
	res := Parse("[THINKING]\n\n[/THINKING]Body")

	require.NotNil(t, res.ThinkingSteps)
	assert.Empty(t, res.ThinkingSteps)
	assert.Equal(t, "Body", res.Body)
}

func TestParse_DuplicateThinkingFirstWinsBothScrubbed(t *testing.T) {
	raw := "[THINKING]- first[/THINKING]\nMiddle.\n[THINKING]- second[/THINKING]"
	res := Parse(raw)

	assert.Equal(t, []string{"first"}, res.ThinkingSteps)
	assert.Equal(t, "Middle.", res.Body)
	assert.NotContains(t, res.Body, "second")
}

func TestParse_UnclosedTagIsLeftInBody(t *testing.T) {
	res := Parse("[TITLE]Never closed\nprose")

	assert.Nil(t, res.SuggestedTitle)
	assert.Equal(t, "[TITLE]Never closed\nprose", res.Body)
}

func TestParse_TagsAreCaseSensitive(t *testing.T) {
	res := Parse("[title]x[/title]")

	assert.Nil(t, res.SuggestedTitle)
	assert.Equal(t, "[title]x[/title]", res.Body)
}

func TestParse_Choices(t *testing.T) {
	raw := `Context sentence.

[CHOICES]
**The Fed's Credibility Problem**
Argues that recent policy reversals have eroded market trust.

**Rate Cuts Won't Save Housing**
Makes the case that structural supply issues matter more.
[/CHOICES]`
	res := Parse(raw)

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "Context sentence.", res.Body)

	first := res.Choices[0]
	assert.Equal(t, "choice-0", first.ID)
	assert.Equal(t, "The Fed's Credibility Problem", first.Label)
	assert.Equal(t, "Argues that recent policy reversals have eroded market trust.", first.Description)
	assert.True(t, strings.HasPrefix(first.Value, ChoicePrefix+first.Label))

	second := res.Choices[1]
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
	assert.Equal(t, "Rate Cuts Won't Save Housing", second.Label)
	assert.Equal(t, "I want to explore: Rate Cuts Won't Save Housing. Makes the case that structural supply issues matter more.", second.Value)
}

func TestParse_ChoiceWithoutBoldUsesFirstLine(t *testing.T) {
	res := Parse("[CHOICES]\n✏️ Next logical step | Action prompt\n[/CHOICES]")

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "✏️ Next logical step | Action prompt", res.Choices[0].Label)
	assert.Equal(t, "", res.Choices[0].Description)
}

func TestParse_ChoiceMultiLineDescriptionJoined(t *testing.T) {
	res := Parse("[CHOICES]**A**\nline one\nline two[/CHOICES]")

	require.Len(t, res.Choices, 1)
	assert.Equal(t, "line one line two", res.Choices[0].Description)
}

func TestParse_EmptyLabelChunkDropped(t *testing.T) {
	res := Parse("[CHOICES]**A**\nx\n** **\ny\n**B**\nz[/CHOICES]")

	require.Len(t, res.Choices, 2)
	assert.Equal(t, "choice-0", res.Choices[0].ID)
	assert.Equal(t, "A", res.Choices[0].Label)
	assert.Equal(t, "choice-2", res.Choices[1].ID)
	assert.Equal(t, "B", res.Choices[1].Label)
	assert.Equal(t, "z", res.Choices[1].Description)
}

func TestParse_EmptyChoicesBlock(t *testing.T) {
	res := Parse("[CHOICES]\n   \n[/CHOICES]")

	require.NotNil(t, res.Choices)
	assert.Empty(t, res.Choices)
}

func TestParse_Outline(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	res := ParseAt("[OUTLINE]1. Intro\n2. Body\n3. Conclusion[/OUTLINE]", now)

	require.Len(t, res.OutlineItems, 3)
	titles := make([]string, 0, 3)
	for _, item := range res.OutlineItems {
		titles = append(titles, item.Title)
		assert.False(t, item.Completed)
	}
	assert.Equal(t, []string{"Intro", "Body", "Conclusion"}, titles)
	assert.Equal(t, "outline-1700000000000-0", res.OutlineItems[0].ID)
	assert.Equal(t, "outline-1700000000000-2", res.OutlineItems[2].ID)
	assert.Equal(t, "", res.Body)
}

func TestParse_OutlineStripsBulletsAndBold(t *testing.T) {
	res := Parse("[OUTLINE]\n- First\n  * Second\n• Third\n\n4) Fourth\n[/OUTLINE]")

	require.Len(t, res.OutlineItems, 4)
	assert.Equal(t, "First", res.OutlineItems[0].Title)
	assert.Equal(t, "Second", res.OutlineItems[1].Title)
	assert.Equal(t, "Third", res.OutlineItems[2].Title)
	assert.Equal(t, ") Fourth", res.OutlineItems[3].Title)
}

func TestParse_OutlineWhitespaceOnlyLinesDropped(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	res := ParseAt("[OUTLINE]1. Intro\n   \n\t\n2. Body\n3.[/OUTLINE]", now)

	// Blank lines are skipped entirely; a bare marker still yields an item.
	require.Len(t, res.OutlineItems, 3)
	assert.Equal(t, "Intro", res.OutlineItems[0].Title)
	assert.Equal(t, "Body", res.OutlineItems[1].Title)
	assert.Equal(t, "outline-1700000000000-1", res.OutlineItems[1].ID)
	assert.Equal(t, "", res.OutlineItems[2].Title)
}

func TestParse_OutlineAcceptedInAnyRound(t *testing.T) {
	// The parser does not gate on phase; it scrapes what it sees.
	res := Parse("[OUTLINE]1. Only[/OUTLINE]")
	require.Len(t, res.OutlineItems, 1)
}

func TestParse_BodyIsStableUnderReparse(t *testing.T) {
	raw := "[THINKING]- a[/THINKING]\nOne sentence of context.\n\n[CHOICES]**X**\ny[/CHOICES]\nMore prose.[TITLE]T[/TITLE]"
	first := Parse(raw)
	second := Parse(first.Body)

	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, FallbackThinkingSteps, second.ThinkingSteps)
}

func TestParse_AllBlocksAnyOrder(t *testing.T) {
	raw := "[OUTLINE]1. A[/OUTLINE][CHOICES]**C**[/CHOICES] mid [TITLE]T[/TITLE][THINKING]- s[/THINKING]"
	res := Parse(raw)

	assert.Equal(t, "mid", res.Body)
	assert.Equal(t, []string{"s"}, res.ThinkingSteps)
	require.NotNil(t, res.SuggestedTitle)
	assert.Equal(t, "T", *res.SuggestedTitle)
	assert.Len(t, res.Choices, 1)
	assert.Len(t, res.OutlineItems, 1)
}

func TestStripOutlineMarker(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1. Intro", "Intro"},
		{"12.3 - Deep", "Deep"},
		{"**Thesis:** one line", "Thesis:** one line"},
		{"   ", ""},
		{"Plain", "Plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripOutlineMarker(tt.in), tt.in)
	}
}
