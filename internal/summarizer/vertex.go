package summarizer

import (
	"context"
	"log/slog"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/reportprinter/internal/gcp"
)

// contentGenerator is the part of *genai.GenerativeModel the summarizer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// VertexSummarizer summarizes with a Gemini model on Vertex AI.
type VertexSummarizer struct {
	model  contentGenerator
	client *gcp.VertexClient
}

func NewVertexSummarizer(ctx context.Context, projectID, region, modelName string) (*VertexSummarizer, error) {
	client, err := gcp.NewVertexClient(ctx, projectID, region, modelName)
	if err != nil {
		return nil, &Error{Provider: ProviderVertex, Err: err}
	}
	return &VertexSummarizer{model: client.SummaryModel, client: client}, nil
}

func (s *VertexSummarizer) Summarize(ctx context.Context, topic string) (string, error) {
	logCtx := slog.With("provider", ProviderVertex, "topic", topic)
	logCtx.Info("Requesting summary.")

	resp, err := s.model.GenerateContent(ctx, genai.Text(gcp.SummaryPrompt(topic)))
	if err != nil {
		logCtx.Error("Call to Vertex AI failed", "error", err)
		return "", &Error{Provider: ProviderVertex, Err: err}
	}

	summary, err := checkSummary(ProviderVertex, gcp.ExtractText(resp))
	if err != nil {
		logCtx.Error("Unusable summary returned.", "error", err)
		return "", err
	}
	logCtx.Info("Summary received.", "length", len(summary))
	return summary, nil
}

func (s *VertexSummarizer) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}
