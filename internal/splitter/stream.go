package splitter

import "strings"

// Kind discriminates streaming deltas.
type Kind int

const (
	KindReasoning Kind = iota
	KindAnswer
)

// Delta is one emitted unit of reasoning or answer text. When Replace is
// set the client must discard everything previously shown for this kind and
// render Content in its place; otherwise Content is appended.
type Delta struct {
	Kind    Kind
	Content string
	Replace bool
}

// Stream classifies an incrementally-delivered response into reasoning and
// answer segments without look-ahead. Early fragments are provisionally
// emitted as reasoning; once a completion marker fully appears in the
// accumulated text the authoritative split from Classify supersedes them
// via a replacing delta. Not safe for concurrent use; scoped to one request.
type Stream struct {
	wantReasoning bool
	thinking      bool

	raw       strings.Builder
	answer    strings.Builder
	reasoning string

	// Running total of currently-valid emitted text, kept for the
	// emitted <= accumulated invariant checked in tests.
	emittedReasoning int
	emittedAnswer    int
}

// NewStream returns a splitter for one streaming response. When
// enableReasoning is false the state machine is bypassed and every fragment
// passes through as an answer delta.
func NewStream(enableReasoning bool) *Stream {
	return &Stream{wantReasoning: enableReasoning, thinking: enableReasoning}
}

// Feed consumes one raw fragment and returns zero or more deltas to emit.
func (s *Stream) Feed(fragment string) []Delta {
	s.raw.WriteString(fragment)

	if !s.wantReasoning {
		s.answer.WriteString(fragment)
		s.emittedAnswer += len(fragment)
		return []Delta{{Kind: KindAnswer, Content: fragment}}
	}

	if s.thinking {
		if idx, _ := findCompletionMarker(s.raw.String()); idx >= 0 {
			// The marker has fully appeared (possibly straddling fragment
			// boundaries). Reclassify the whole accumulated text and
			// supersede every provisional reasoning delta emitted so far.
			s.thinking = false
			res := Classify(s.raw.String())
			s.reasoning = res.Reasoning
			s.answer.Reset()
			s.answer.WriteString(res.Answer)
			s.emittedReasoning = len(res.Reasoning)
			s.emittedAnswer = len(res.Answer)
			return []Delta{
				{Kind: KindReasoning, Content: res.Reasoning, Replace: true},
				{Kind: KindAnswer, Content: res.Answer},
			}
		}
		s.emittedReasoning += len(fragment)
		return []Delta{{Kind: KindReasoning, Content: fragment}}
	}

	// In the answer segment. Guard against the model repeating a marker:
	// rescan the growing buffer and drop the marker and everything before
	// it, correcting the client with a replacing delta.
	s.answer.WriteString(fragment)
	if idx, marker := findCompletionMarker(s.answer.String()); idx >= 0 {
		cleaned := strings.TrimSpace(s.answer.String()[idx+len(marker):])
		s.answer.Reset()
		s.answer.WriteString(cleaned)
		s.emittedAnswer = len(cleaned)
		return []Delta{{Kind: KindAnswer, Content: cleaned, Replace: true}}
	}
	s.emittedAnswer += len(fragment)
	return []Delta{{Kind: KindAnswer, Content: fragment}}
}

// Finish reconciles the running split once the stream has ended and returns
// the final deltas to emit plus the authoritative Result. If the stream
// ended while still in the reasoning segment (no marker ever appeared) the
// accumulated text is reclassified with Classify and both segments are
// replaced; a classification with no answer leaves the text reasoning-only.
func (s *Stream) Finish() ([]Delta, Result) {
	if s.wantReasoning && s.thinking {
		res := Classify(s.raw.String())
		s.reasoning = res.Reasoning
		s.emittedReasoning = len(res.Reasoning)
		if res.Answer == "" {
			return []Delta{{Kind: KindReasoning, Content: res.Reasoning, Replace: true}}, res
		}
		s.emittedAnswer = len(res.Answer)
		return []Delta{
			{Kind: KindReasoning, Content: res.Reasoning, Replace: true},
			{Kind: KindAnswer, Content: res.Answer, Replace: true},
		}, res
	}

	return nil, Result{
		Reasoning: s.reasoning,
		Answer:    strings.TrimSpace(s.answer.String()),
	}
}

// Raw returns the accumulated raw text received so far.
func (s *Stream) Raw() string {
	return s.raw.String()
}

// Emitted returns the currently-valid emitted reasoning and answer lengths.
func (s *Stream) Emitted() (reasoning, answer int) {
	return s.emittedReasoning, s.emittedAnswer
}
