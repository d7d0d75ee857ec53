package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"DeepValue/internal/session"
)

const defaultAnthropicModel = "claude-sonnet-4-20250514"

// Anthropic is a Gateway backed by the Anthropic Messages API.
type Anthropic struct {
	client anthropic.Client
	model  string
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
}

// NewAnthropic builds an Anthropic gateway. The API key comes from the
// ANTHROPIC_API_KEY environment variable, never from configuration files.
func NewAnthropic(model string, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) (*Anthropic, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY not set")
	}
	if model == "" {
		model = defaultAnthropicModel
	}

	logger.Info("initializing anthropic gateway", "model", model)
	return &Anthropic{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		logger: logger,
		tracer: tracer,
		meter:  meter,
	}, nil
}

// params converts stored messages into a Messages API request. System
// messages fold into the system prompt; everything else alternates between
// user and assistant turns.
func (g *Anthropic) params(messages []session.Message, opts Options) anthropic.MessageNewParams {
	system := systemPrompt(opts)

	converted := make([]anthropic.MessageParam, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case session.RoleAssistant:
			converted = append(converted, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		case session.RoleSystem:
			system = system + "\n\n" + msg.Content
		default:
			converted = append(converted, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	return anthropic.MessageNewParams{
		Model:     g.model,
		MaxTokens: int64(maxTokens(opts)),
		Messages:  converted,
		System:    []anthropic.TextBlockParam{{Text: system}},
	}
}

// Invoke sends the conversation and returns the complete response text.
func (g *Anthropic) Invoke(ctx context.Context, messages []session.Message, opts Options) (*Completion, error) {
	ctx, span := g.tracer.Start(ctx, "anthropic_api_call")
	defer span.End()

	start := time.Now()
	resp, err := g.client.Messages.New(ctx, g.params(messages, opts))
	if err != nil {
		return nil, fmt.Errorf("anthropic call failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if block.Type == "text" {
			text = block.Text
		}
	}
	if text == "" {
		return nil, fmt.Errorf("empty response from Anthropic")
	}

	usage := Usage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	recordUsage(ctx, g.meter, "anthropic", usage, time.Since(start))

	return &Completion{Text: text, Usage: usage}, nil
}

// InvokeStream sends the conversation and forwards each text delta to emit
// as it arrives.
func (g *Anthropic) InvokeStream(ctx context.Context, messages []session.Message, opts Options, emit func(fragment string) error) error {
	ctx, span := g.tracer.Start(ctx, "anthropic_api_stream")
	defer span.End()

	start := time.Now()
	stream := g.client.Messages.NewStreaming(ctx, g.params(messages, opts))

	acc := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		if err := acc.Accumulate(event); err != nil {
			// Malformed chunk: log and keep reading the stream.
			g.logger.Warn("failed to accumulate stream event", "error", err)
			continue
		}

		switch eventVariant := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch deltaVariant := eventVariant.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				if deltaVariant.Text == "" {
					continue
				}
				if err := emit(deltaVariant.Text); err != nil {
					return err
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return fmt.Errorf("anthropic stream failed: %w", err)
	}

	usage := Usage{
		InputTokens:  int(acc.Usage.InputTokens),
		OutputTokens: int(acc.Usage.OutputTokens),
	}
	recordUsage(ctx, g.meter, "anthropic", usage, time.Since(start))

	return nil
}
