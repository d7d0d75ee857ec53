package splitter

import (
	"regexp"
	"strings"
)

// completionMarkers end the reasoning segment when they appear in a stream.
// The model is instructed to use "Final Answer:" but does not always comply.
var completionMarkers = []string{
	"Final Answer:",
	"Final Response:",
	"My answer:",
	"My response:",
}

// separators are the one-shot classification candidates, in priority order.
// The leftmost occurrence wins; list order breaks ties at the same offset,
// so "Final Answer:" beats its own "Answer:" suffix.
var separators = []string{
	"Final Answer:",
	"Final Response:",
	"My answer:",
	"My response:",
	"Answer:",
	"Response:",
	"In conclusion:",
	"To summarize:",
	"---",
	"###",
}

var (
	thinkingHeading = regexp.MustCompile(`(?im)^#+[ \t]*Thinking Process`)
	anyHeading      = regexp.MustCompile(`(?m)^#+\s`)
)

// Result is the output of one-shot classification. Reasoning and Answer are
// non-overlapping substrings of the input (trimmed); reasoning precedes the
// answer in the source text whenever both are non-empty.
type Result struct {
	Reasoning string `json:"reasoning"`
	Answer    string `json:"answer"`
}

// Classify partitions a complete model response into a reasoning prefix and
// a final-answer suffix. It is pure and is the single source of truth for
// the split policy; the streaming splitter reconciles against it at
// end-of-stream.
//
// Priority order: markdown "Thinking Process" heading, then the first
// keyword separator, then an even paragraph split, then answer-only.
func Classify(text string) Result {
	if loc := thinkingHeading.FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if next := anyHeading.FindStringIndex(rest); next != nil {
			return Result{
				Reasoning: strings.TrimSpace(rest[:next[0]]),
				Answer:    strings.TrimSpace(rest[next[0]:]),
			}
		}
		// No later heading: the whole remainder is reasoning.
		return Result{Reasoning: strings.TrimSpace(rest)}
	}

	if idx, sep := findSeparator(text); idx >= 0 {
		return Result{
			Reasoning: strings.TrimSpace(text[:idx]),
			Answer:    strings.TrimSpace(text[idx+len(sep):]),
		}
	}

	paragraphs := strings.Split(text, "\n\n")
	if len(paragraphs) >= 2 {
		mid := len(paragraphs) / 2
		return Result{
			Reasoning: strings.TrimSpace(strings.Join(paragraphs[:mid], "\n\n")),
			Answer:    strings.TrimSpace(strings.Join(paragraphs[mid:], "\n\n")),
		}
	}

	return Result{Answer: strings.TrimSpace(text)}
}

// findSeparator returns the offset and text of the leftmost separator
// occurrence, or -1 if none is present.
func findSeparator(text string) (int, string) {
	best := -1
	var match string
	for _, sep := range separators {
		if idx := strings.Index(text, sep); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			match = sep
		}
	}
	return best, match
}

// findCompletionMarker is findSeparator restricted to the markers that flip
// the streaming state machine from reasoning to answer.
func findCompletionMarker(text string) (int, string) {
	best := -1
	var match string
	for _, m := range completionMarkers {
		if idx := strings.Index(text, m); idx >= 0 && (best < 0 || idx < best) {
			best = idx
			match = m
		}
	}
	return best, match
}
