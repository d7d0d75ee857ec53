package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"DeepValue/internal/session"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI is a Gateway backed by the OpenAI chat completions API.
type OpenAI struct {
	client *openai.Client
	model  string
	logger *slog.Logger
	tracer trace.Tracer
	meter  metric.Meter
}

// NewOpenAI builds an OpenAI gateway. The API key comes from the
// OPENAI_API_KEY environment variable.
func NewOpenAI(model string, logger *slog.Logger, tracer trace.Tracer, meter metric.Meter) (*OpenAI, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if model == "" {
		model = defaultOpenAIModel
	}

	logger.Info("initializing openai gateway", "model", model)
	return &OpenAI{
		client: openai.NewClient(apiKey),
		model:  model,
		logger: logger,
		tracer: tracer,
		meter:  meter,
	}, nil
}

// request converts stored messages into a chat completion request with the
// persona prompt prepended as the system turn.
func (g *OpenAI) request(messages []session.Message, opts Options) openai.ChatCompletionRequest {
	converted := make([]openai.ChatCompletionMessage, 0, len(messages)+1)
	converted = append(converted, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: systemPrompt(opts),
	})
	for _, msg := range messages {
		role := openai.ChatMessageRoleUser
		switch msg.Role {
		case session.RoleAssistant:
			role = openai.ChatMessageRoleAssistant
		case session.RoleSystem:
			role = openai.ChatMessageRoleSystem
		}
		converted = append(converted, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	return openai.ChatCompletionRequest{
		Model:     g.model,
		Messages:  converted,
		MaxTokens: maxTokens(opts),
	}
}

// Invoke sends the conversation and returns the complete response text.
func (g *OpenAI) Invoke(ctx context.Context, messages []session.Message, opts Options) (*Completion, error) {
	ctx, span := g.tracer.Start(ctx, "openai_api_call")
	defer span.End()

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, g.request(messages, opts))
	if err != nil {
		return nil, fmt.Errorf("openai call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	usage := Usage{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}
	recordUsage(ctx, g.meter, "openai", usage, time.Since(start))

	return &Completion{Text: resp.Choices[0].Message.Content, Usage: usage}, nil
}

// InvokeStream sends the conversation and forwards each content delta to
// emit as it arrives.
func (g *OpenAI) InvokeStream(ctx context.Context, messages []session.Message, opts Options, emit func(fragment string) error) error {
	ctx, span := g.tracer.Start(ctx, "openai_api_stream")
	defer span.End()

	start := time.Now()
	stream, err := g.client.CreateChatCompletionStream(ctx, g.request(messages, opts))
	if err != nil {
		return fmt.Errorf("openai stream failed: %w", err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("openai stream failed: %w", err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		fragment := resp.Choices[0].Delta.Content
		if fragment == "" {
			continue
		}
		if err := emit(fragment); err != nil {
			return err
		}
	}

	// The streaming API does not report usage; record the duration only.
	recordUsage(ctx, g.meter, "openai", Usage{}, time.Since(start))

	return nil
}
