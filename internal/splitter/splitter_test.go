package splitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyHeadingWithFollowingHeading(t *testing.T) {
	text := "# Thinking Process\nStep 1. Step 2.\n# Final Answer\nBuy AAPL."
	res := Classify(text)

	assert.Equal(t, "Step 1. Step 2.", res.Reasoning)
	assert.Equal(t, "# Final Answer\nBuy AAPL.", res.Answer)
}

func TestClassifyHeadingCaseAndLevelInsensitive(t *testing.T) {
	text := "### thinking process\nponder\n## Result\ndone"
	res := Classify(text)

	assert.Equal(t, "ponder", res.Reasoning)
	assert.Equal(t, "## Result\ndone", res.Answer)
}

func TestClassifyHeadingWithoutFollowingHeading(t *testing.T) {
	text := "## Thinking Process\nonly deliberation here"
	res := Classify(text)

	assert.Equal(t, "only deliberation here", res.Reasoning)
	assert.Empty(t, res.Answer)
}

func TestClassifyKeywordSeparator(t *testing.T) {
	text := "I considered X and Y.\n\nFinal Answer: Sell.\n"
	res := Classify(text)

	assert.Equal(t, "I considered X and Y.", res.Reasoning)
	assert.Equal(t, "Sell.", res.Answer)
}

func TestClassifyKeywordReconstructsInput(t *testing.T) {
	text := "Weighing growth against valuation.\n\nFinal Answer: Hold."
	res := Classify(text)

	joined := res.Reasoning + "\n\nFinal Answer: " + res.Answer
	assert.Equal(t, strings.TrimSpace(text), joined)
}

func TestClassifyLeftmostSeparatorWins(t *testing.T) {
	// "Final Answer:" sits before the bare "Response:" occurrence, and its
	// own "Answer:" suffix must not split it in the middle.
	text := "Reasoning. Final Answer: Buy. Response: ignored."
	res := Classify(text)

	assert.Equal(t, "Reasoning.", res.Reasoning)
	assert.Equal(t, "Buy. Response: ignored.", res.Answer)
}

func TestClassifyParagraphFallback(t *testing.T) {
	text := "First thought.\n\nSecond thought.\n\nThird part.\n\nFourth part."
	res := Classify(text)

	assert.Equal(t, "First thought.\n\nSecond thought.", res.Reasoning)
	assert.Equal(t, "Third part.\n\nFourth part.", res.Answer)

	// Every paragraph is covered exactly once.
	all := strings.Split(text, "\n\n")
	covered := strings.Split(res.Reasoning, "\n\n")
	covered = append(covered, strings.Split(res.Answer, "\n\n")...)
	assert.Equal(t, all, covered)
}

func TestClassifyParagraphFallbackOddCount(t *testing.T) {
	text := "a\n\nb\n\nc"
	res := Classify(text)

	// Midpoint rounds down: one paragraph of reasoning, two of answer.
	assert.Equal(t, "a", res.Reasoning)
	assert.Equal(t, "b\n\nc", res.Answer)
}

func TestClassifyDefaultAnswerOnly(t *testing.T) {
	text := "  Just a plain single-paragraph reply. "
	res := Classify(text)

	assert.Empty(t, res.Reasoning)
	assert.Equal(t, "Just a plain single-paragraph reply.", res.Answer)
}

func TestStreamMarkerAcrossFragmentBoundaries(t *testing.T) {
	fragments := []string{"I thi", "nk X i", "s good.\n\nFinal Ans", "wer: Buy."}
	full := strings.Join(fragments, "")

	s := NewStream(true)
	var deltas []Delta
	for _, f := range fragments {
		deltas = append(deltas, s.Feed(f)...)
	}
	finals, res := s.Finish()
	deltas = append(deltas, finals...)

	assert.Equal(t, Classify(full), res)
	assert.Equal(t, "I think X is good.", res.Reasoning)
	assert.Equal(t, "Buy.", res.Answer)

	// The first three fragments are provisional reasoning appends (the
	// marker is still incomplete after "Final Ans"); the fragment that
	// completes it triggers a replacing reasoning delta followed by the
	// first answer delta.
	require.Len(t, deltas, 5)
	assert.Equal(t, Delta{Kind: KindReasoning, Content: "I thi"}, deltas[0])
	assert.Equal(t, Delta{Kind: KindReasoning, Content: "nk X i"}, deltas[1])
	assert.Equal(t, Delta{Kind: KindReasoning, Content: "s good.\n\nFinal Ans"}, deltas[2])
	assert.Equal(t, Delta{Kind: KindReasoning, Content: "I think X is good.", Replace: true}, deltas[3])
	assert.Equal(t, Delta{Kind: KindAnswer, Content: "Buy."}, deltas[4])
}

func TestStreamReconciliationMatchesClassify(t *testing.T) {
	texts := []string{
		"I considered X and Y.\n\nFinal Answer: Sell.\n",
		"# Thinking Process\nStep 1. Step 2.\n# Final Answer\nBuy AAPL.",
		"First thought.\n\nSecond thought.\n\nThird part.\n\nFourth part.",
		"Just a plain single-paragraph reply.",
		"Deliberation only, no marker.\n\nMy response: Diversify.",
	}

	for _, text := range texts {
		// Split at every possible single boundary, plus rune-by-rune.
		var splits [][]string
		for i := 1; i < len(text); i++ {
			splits = append(splits, []string{text[:i], text[i:]})
		}
		var runes []string
		for _, r := range text {
			runes = append(runes, string(r))
		}
		splits = append(splits, runes, []string{text})

		want := Classify(text)
		for _, fragments := range splits {
			s := NewStream(true)
			for _, f := range fragments {
				s.Feed(f)
			}
			_, got := s.Finish()
			require.Equal(t, want, got, "text %q fragments %d", text, len(fragments))
		}
	}
}

func TestStreamEndWhileThinkingReplacesBothSegments(t *testing.T) {
	s := NewStream(true)
	s.Feed("Thoughts about macro risk.\n\n")
	s.Feed("Stay in cash.")

	deltas, res := s.Finish()

	require.Len(t, deltas, 2)
	assert.Equal(t, Delta{Kind: KindReasoning, Content: "Thoughts about macro risk.", Replace: true}, deltas[0])
	assert.Equal(t, Delta{Kind: KindAnswer, Content: "Stay in cash.", Replace: true}, deltas[1])
	assert.Equal(t, Result{Reasoning: "Thoughts about macro risk.", Answer: "Stay in cash."}, res)
}

func TestStreamEndWhileThinkingReasoningOnly(t *testing.T) {
	s := NewStream(true)
	s.Feed("# Thinking Process\n")
	s.Feed("endless deliberation")

	deltas, res := s.Finish()

	require.Len(t, deltas, 1)
	assert.Equal(t, KindReasoning, deltas[0].Kind)
	assert.True(t, deltas[0].Replace)
	assert.Equal(t, "endless deliberation", res.Reasoning)
	assert.Empty(t, res.Answer)
}

func TestStreamRepeatedMarkerStrippedFromAnswer(t *testing.T) {
	s := NewStream(true)
	s.Feed("Thinking.\n\nFinal Answer: Buy bonds.")
	deltas := s.Feed(" Final Ans")
	assert.Equal(t, []Delta{{Kind: KindAnswer, Content: " Final Ans"}}, deltas)

	// Marker completes across the boundary; the buffer is cleaned and the
	// client corrected with a replacing delta.
	deltas = s.Feed("wer: Actually sell.")
	require.Len(t, deltas, 1)
	assert.True(t, deltas[0].Replace)
	assert.Equal(t, "Actually sell.", deltas[0].Content)

	_, res := s.Finish()
	assert.Equal(t, "Actually sell.", res.Answer)
}

func TestStreamNoReasoningPassthrough(t *testing.T) {
	s := NewStream(false)

	d1 := s.Feed("Hello")
	d2 := s.Feed(", world. Final Answer: untouched.")
	finals, res := s.Finish()

	assert.Equal(t, []Delta{{Kind: KindAnswer, Content: "Hello"}}, d1)
	assert.Equal(t, []Delta{{Kind: KindAnswer, Content: ", world. Final Answer: untouched."}}, d2)
	assert.Empty(t, finals)
	assert.Empty(t, res.Reasoning)
	assert.Equal(t, "Hello, world. Final Answer: untouched.", res.Answer)
}

func TestStreamEmittedNeverExceedsAccumulated(t *testing.T) {
	fragments := []string{"Step one.\n", "\nFinal An", "swer: act.", " More."}

	s := NewStream(true)
	for _, f := range fragments {
		s.Feed(f)
		r, a := s.Emitted()
		assert.LessOrEqual(t, r+a, len(s.Raw()))
	}
	s.Finish()
	r, a := s.Emitted()
	assert.LessOrEqual(t, r+a, len(s.Raw()))
}
