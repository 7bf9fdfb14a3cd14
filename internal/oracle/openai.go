package oracle

import (
	"context"
	"fmt"
	"math"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/chronicle-dev/chronicle/internal/errors"
)

const classifySystemPrompt = `You classify git commits. Reply with exactly one line:
<category>: <one-sentence summary>
Category must be one of: feature, fix, refactor, docs, test, build, performance, other.`

// OpenAIOracle implements Oracle against an OpenAI-compatible API.
// Classification uses chat completions; similarity uses embedding cosine
// distance, which is cheap and deterministic enough for scoring.
type OpenAIOracle struct {
	client         *openai.Client
	model          string
	embeddingModel string
}

// NewOpenAIOracle creates an oracle backed by the OpenAI API.
func NewOpenAIOracle(apiKey, model, embeddingModel string) *OpenAIOracle {
	return &OpenAIOracle{
		client:         openai.NewClient(apiKey),
		model:          model,
		embeddingModel: embeddingModel,
	}
}

// Classify asks the model for a category and summary of the commit text.
func (o *OpenAIOracle) Classify(ctx context.Context, commitText string) (Classification, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: commitText},
		},
		Temperature: 0,
		MaxTokens:   100,
	})
	if err != nil {
		return Classification{}, errors.TransientError(err, "classify commit")
	}
	if len(resp.Choices) == 0 {
		return Classification{}, fmt.Errorf("classify: empty response")
	}

	return parseClassification(resp.Choices[0].Message.Content), nil
}

// parseClassification splits "category: summary" answers, tolerating models
// that add whitespace or drop the summary.
func parseClassification(answer string) Classification {
	answer = strings.TrimSpace(answer)
	category, summary, found := strings.Cut(answer, ":")
	if !found {
		return Classification{Category: "other", Summary: answer}
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = "other"
	}
	return Classification{
		Category: category,
		Summary:  strings.TrimSpace(summary),
	}
}

// Similarity embeds both texts in one request and returns their cosine
// similarity mapped into [0,1].
func (o *OpenAIOracle) Similarity(ctx context.Context, a, b string) (float64, error) {
	if strings.TrimSpace(a) == "" || strings.TrimSpace(b) == "" {
		return 0, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(o.embeddingModel),
		Input: []string{a, b},
	})
	if err != nil {
		return 0, errors.TransientError(err, "embed texts")
	}
	if len(resp.Data) != 2 {
		return 0, fmt.Errorf("similarity: expected 2 embeddings, got %d", len(resp.Data))
	}

	cos := cosine(resp.Data[0].Embedding, resp.Data[1].Embedding)
	// Cosine lands in [-1,1]; scores below orthogonal carry no signal
	return math.Max(0, cos), nil
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
