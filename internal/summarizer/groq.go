package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Lllllllleong/reportprinter/internal/gcp"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama3-70b-8192"
)

// zeroTemperature asks for greedy decoding. The client drops a temperature
// of exactly 0 from the request, which Groq would read as its default of 1.
const zeroTemperature = math.SmallestNonzeroFloat32

// chatCompleter is the part of the OpenAI client used here.
type chatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// GroqSummarizer summarizes through the OpenAI compatible chat completions
// endpoint served by Groq.
type GroqSummarizer struct {
	ModelName string
	client    chatCompleter
}

func NewGroqSummarizer(baseURL, apiKey, modelName string) (*GroqSummarizer, error) {
	if apiKey == "" {
		return nil, &Error{Provider: ProviderGroq, Err: fmt.Errorf("GROQ_API_KEY must be set")}
	}
	if baseURL == "" {
		baseURL = DefaultGroqBaseURL
	}
	if modelName == "" {
		modelName = DefaultGroqModel
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimSuffix(baseURL, "/")
	config.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &GroqSummarizer{
		ModelName: modelName,
		client:    openai.NewClientWithConfig(config),
	}, nil
}

func (g *GroqSummarizer) Summarize(ctx context.Context, topic string) (string, error) {
	logCtx := slog.With("provider", ProviderGroq, "topic", topic, "model", g.ModelName)
	logCtx.Info("Requesting summary.")

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: gcp.SummarySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: gcp.SummaryPrompt(topic)},
		},
		Temperature: zeroTemperature,
	})
	if err != nil {
		logCtx.Error("Call to Groq failed", "error", err)
		return "", &Error{Provider: ProviderGroq, Err: fmt.Errorf("groq chat completion: %w", err)}
	}

	var content string
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	summary, err := checkSummary(ProviderGroq, content)
	if err != nil {
		logCtx.Error("Unusable summary returned.", "error", err)
		return "", err
	}
	logCtx.Info("Summary received.", "length", len(summary))
	return summary, nil
}
