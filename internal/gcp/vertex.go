package gcp

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
)

// --- Summary Model Prompts ---
const SummarySystemPrompt = "You are a research assistant. You write short, factual summaries of research notes for a printed one-page briefing."
const SummaryUserPrompt = `Write a concise summary of the following:

"%s"

Write plain sentences that each end with a period. Do not use headings, markdown, or numbered lists.

CONCISE SUMMARY:`

// ResearchSeed is the research text summarized for a topic.
const ResearchSeed = "%s: AI is transforming healthcare with predictive diagnostics, robotic surgery, personalized medicine, and more. It enables faster data processing, better decision support, and enhanced patient outcomes."

// SummaryPrompt fills SummaryUserPrompt with the research text for topic.
func SummaryPrompt(topic string) string {
	return fmt.Sprintf(SummaryUserPrompt, fmt.Sprintf(ResearchSeed, topic))
}

// VertexClient holds the pre-configured summary model.
type VertexClient struct {
	SummaryModel *genai.GenerativeModel
	baseClient   *genai.Client
}

// NewVertexClient creates a client for modelName in the given project and region.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = "gemini-1.5-pro"
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	summaryModel := baseClient.GenerativeModel(modelName)
	summaryModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(SummarySystemPrompt)},
	}
	summaryModel.GenerationConfig = genai.GenerationConfig{
		Temperature: genai.Ptr[float32](0.0),
	}

	return &VertexClient{
		SummaryModel: summaryModel,
		baseClient:   baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ExtractText concatenates the text parts of the first candidate.
func ExtractText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var contentBuilder strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			contentBuilder.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(contentBuilder.String())
}
