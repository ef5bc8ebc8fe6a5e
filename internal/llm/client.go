package llm

// #region imports
import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/danielpatrickdp/coscientist/go-controller/internal/hypothesis"
)

// #endregion imports

// #region config

// ClientConfig holds connection and retry settings for the OpenRouter client.
type ClientConfig struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxRetries     int
	InitialDelay   time.Duration
}

// DefaultClientConfig returns settings matching the hosted defaults.
func DefaultClientConfig(apiKey string) ClientConfig {
	return ClientConfig{
		BaseURL:        "https://openrouter.ai/api/v1",
		APIKey:         apiKey,
		Model:          "google/gemini-flash-1.5",
		EmbeddingModel: "openai/text-embedding-3-small",
		MaxRetries:     3,
		InitialDelay:   time.Second,
	}
}

// #endregion config

// #region client-struct

// Client talks to an OpenRouter-compatible chat-completions API and
// implements every adapter interface the orchestrator consumes.
type Client struct {
	api    *openai.Client
	config ClientConfig
	logger CallLogger // nil = no call logging
}

// NewClient builds a Client from config.
func NewClient(config ClientConfig) *Client {
	cfg := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		cfg.BaseURL = config.BaseURL
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}
	if config.InitialDelay <= 0 {
		config.InitialDelay = time.Second
	}
	return &Client{
		api:    openai.NewClientWithConfig(cfg),
		config: config,
	}
}

// SetCallLogger attaches an outbound call logger (e.g. the archive).
func (c *Client) SetCallLogger(l CallLogger) {
	c.logger = l
}

// #endregion client-struct

// #region complete

// complete runs one chat completion with exponential-backoff retries.
func (c *Client) complete(ctx context.Context, callType, prompt string, temperature float64) (string, error) {
	start := time.Now()
	var content string
	var lastErr error
	var usage openai.Usage
	retries := 0

	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.config.Model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Temperature: float32(temperature),
		})
		if err == nil && len(resp.Choices) > 0 {
			content = resp.Choices[0].Message.Content
			usage = resp.Usage
			lastErr = nil
			break
		}
		if err == nil {
			lastErr = fmt.Errorf("no choices in response")
		} else {
			lastErr = err
		}
		retries++
		if attempt < c.config.MaxRetries-1 {
			wait := c.config.InitialDelay * time.Duration(1<<attempt)
			log.Printf("[LLM] %s call failed (attempt %d/%d), retrying in %s: %v",
				callType, attempt+1, c.config.MaxRetries, wait, lastErr)
			select {
			case <-ctx.Done():
				lastErr = ctx.Err()
				attempt = c.config.MaxRetries // stop retrying
			case <-time.After(wait):
			}
		}
	}

	if c.logger != nil {
		rec := CallRecord{
			Type:        callType,
			Model:       c.config.Model,
			Temperature: temperature,
			LatencyMS:   float64(time.Since(start).Milliseconds()),
			Success:     lastErr == nil,
			Retries:     retries,
		}
		if lastErr == nil {
			rec.PromptTokens = usage.PromptTokens
			rec.CompletionTokens = usage.CompletionTokens
		} else {
			rec.ErrorMessage = lastErr.Error()
		}
		c.logger.LogCall(rec)
	}

	if lastErr != nil {
		return "", lastErr
	}
	return content, nil
}

// #endregion complete

// #region generate

// Generate asks for count hypotheses and parses them into drafts.
func (c *Client) Generate(ctx context.Context, goal string, count int, temperature float64) ([]GeneratedDraft, error) {
	prompt := generationPrompt(goal, count)
	content, err := c.complete(ctx, "generation", prompt, temperature)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}
	drafts := ParseDrafts(content)
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%w: no parseable hypotheses in response", ErrGenerationUnavailable)
	}
	if len(drafts) > count {
		drafts = drafts[:count]
	}
	return drafts, nil
}

// #endregion generate

// #region review

// Review asks for novelty/feasibility judgments of one hypothesis.
func (c *Client) Review(ctx context.Context, h *hypothesis.Hypothesis, temperature float64) (hypothesis.Review, error) {
	prompt := reviewPrompt(h)
	content, err := c.complete(ctx, "review", prompt, temperature)
	if err != nil {
		return hypothesis.Review{}, fmt.Errorf("%w: %v", ErrReviewUnavailable, err)
	}
	return ParseReview(content), nil
}

// #endregion review

// #region judge

// Judge runs a pairwise comparison. An unparseable verdict is a judgment
// failure, which the tournament engine records as no contest.
func (c *Client) Judge(ctx context.Context, a, b *hypothesis.Hypothesis) (Judgment, error) {
	prompt := judgmentPrompt(a, b)
	content, err := c.complete(ctx, "judgment", prompt, 0.0)
	if err != nil {
		return Judgment{}, fmt.Errorf("%w: %v", ErrJudgmentUnavailable, err)
	}
	verdict, ok := ParseVerdict(content)
	if !ok {
		return Judgment{}, fmt.Errorf("%w: unparseable verdict %q", ErrJudgmentUnavailable, firstLine(content))
	}
	switch verdict {
	case "A":
		return Judgment{WinnerID: a.ID}, nil
	case "B":
		return Judgment{WinnerID: b.ID}, nil
	default:
		return Judgment{Draw: true}, nil
	}
}

// #endregion judge

// #region similarity

// Similarity embeds both texts and returns cosine similarity clamped to [0,1].
func (c *Client) Similarity(ctx context.Context, a, b *hypothesis.Hypothesis) (float64, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.config.EmbeddingModel),
		Input: []string{a.Text, b.Text},
	})
	if err != nil {
		return 0, fmt.Errorf("embed: %w", err)
	}
	if len(resp.Data) < 2 {
		return 0, fmt.Errorf("embed: expected 2 embeddings, got %d", len(resp.Data))
	}
	sim := CosineSimilarity(resp.Data[0].Embedding, resp.Data[1].Embedding)
	return clamp01(float64(sim)), nil
}

// #endregion similarity

// #region summarize

// Summarize produces a critique and next steps from the population snapshot.
func (c *Client) Summarize(ctx context.Context, in SummaryInput) (Summary, error) {
	prompt := summaryPrompt(in)
	content, err := c.complete(ctx, "summary", prompt, 0.5)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return ParseSummary(content), nil
}

// #endregion summarize

// #region helpers

// CosineSimilarity computes cosine similarity between two vectors.
// Returns 0 for zero-length or mismatched vectors.
func CosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return float32(dot / denom)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// #endregion helpers
