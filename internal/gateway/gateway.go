package gateway

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"DeepValue/internal/session"
)

// Options controls one model invocation.
type Options struct {
	// EnableReasoning selects the system prompt that instructs the model
	// to emit a "Thinking Process:" section before its "Final Answer:".
	EnableReasoning bool

	// MaxTokens caps the completion length; 0 means the provider default.
	MaxTokens int
}

const defaultMaxTokens = 4096

// Usage is the provider-reported token accounting for one call.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Completion is the result of a single-shot invocation.
type Completion struct {
	Text  string
	Usage Usage
}

// Gateway wraps one remote text-generation provider. The concrete variant
// is selected once at configuration time, never re-derived per call.
type Gateway interface {
	// Invoke sends the full message list and returns one complete response.
	Invoke(ctx context.Context, messages []session.Message, opts Options) (*Completion, error)

	// InvokeStream sends the full message list and delivers the response
	// incrementally, calling emit once per text fragment in emission order.
	// A non-nil error from emit stops the stream and is returned; the
	// stream is also torn down when ctx is canceled.
	InvokeStream(ctx context.Context, messages []session.Message, opts Options, emit func(fragment string) error) error
}

const personaPrompt = "You are a helpful AI assistant specialized in investment analysis."

const reasoningPrompt = personaPrompt +
	" When answering, follow this exact format: First, write 'Thinking Process:'" +
	" and think step by step about the problem. Then, write 'Final Answer:'" +
	" followed by your concise answer based on your reasoning." +
	" Never repeat your thinking in your final answer."

// systemPrompt returns the persona for the requested mode.
func systemPrompt(opts Options) string {
	if opts.EnableReasoning {
		return reasoningPrompt
	}
	return personaPrompt
}

// maxTokens resolves the completion cap.
func maxTokens(opts Options) int {
	if opts.MaxTokens > 0 {
		return opts.MaxTokens
	}
	return defaultMaxTokens
}

// recordUsage records token usage counters and the call duration histogram.
func recordUsage(ctx context.Context, meter metric.Meter, provider string, usage Usage, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("llm.provider", provider))

	for name, value := range map[string]int{
		"llm.usage.input_tokens":  usage.InputTokens,
		"llm.usage.output_tokens": usage.OutputTokens,
	} {
		counter, err := meter.Int64Counter(name,
			metric.WithDescription(fmt.Sprintf("LLM usage metric: %s", name)),
		)
		if err != nil {
			continue
		}
		counter.Add(ctx, int64(value), attrs)
	}

	histogram, err := meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
	)
	if err == nil {
		histogram.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}
