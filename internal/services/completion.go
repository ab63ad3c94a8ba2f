package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"jobprep-backend/internal/models"
)

const (
	completionMaxAttempts = 3
	backoffBase           = 2 * time.Second
	backoffCap            = 10 * time.Second
)

// CompletionRequest is one structured call to the completion service.
// History carries role and content only; timestamps and other session
// metadata are never forwarded upstream.
type CompletionRequest struct {
	System      string
	History     []models.Turn
	UserPrompt  string
	MaxTokens   int
	Temperature float32
}

type CompletionResult struct {
	Content    string
	TokensUsed int
	Model      string
}

// CompletionClient is the surface the interview and feedback services
// depend on; tests substitute fakes.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error)
	ModelName() string
}

// GeminiCompletionClient wraps a Gemini generative model behind the
// CompletionClient contract, with retry on transient upstream failures.
type GeminiCompletionClient struct {
	client    *genai.Client
	modelName string
	timeout   time.Duration
}

func NewGeminiCompletionClient(apiKey, modelName string, timeout time.Duration) (*GeminiCompletionClient, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiCompletionClient{
		client:    client,
		modelName: modelName,
		timeout:   timeout,
	}, nil
}

func (c *GeminiCompletionClient) Close() {
	c.client.Close()
}

func (c *GeminiCompletionClient) ModelName() string {
	return c.modelName
}

// Complete calls the model, retrying rate-limit, 5xx and per-call timeout
// failures up to three attempts with jittered exponential backoff. Any
// other failure propagates immediately as a *CompletionError.
func (c *GeminiCompletionClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	var lastErr error

	for attempt := 1; attempt <= completionMaxAttempts; attempt++ {
		result, err := c.doComplete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !isRetryableCompletion(err) || ctx.Err() != nil {
			return nil, &CompletionError{Err: err}
		}

		if attempt < completionMaxAttempts {
			delay := backoffDelay(attempt)
			log.Printf("Completion attempt %d/%d failed (retrying in %v): %v", attempt, completionMaxAttempts, delay, err)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, &CompletionError{Err: ctx.Err()}
			}
		}
	}

	return nil, &CompletionError{Err: fmt.Errorf("retries exhausted: %w", lastErr)}
}

func (c *GeminiCompletionClient) doComplete(ctx context.Context, req CompletionRequest) (*CompletionResult, error) {
	model := c.client.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	model.SetTemperature(req.Temperature)
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	chat := model.StartChat()
	for _, turn := range req.History {
		role, ok := apiRole(turn.Role)
		if !ok {
			continue
		}
		chat.History = append(chat.History, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(turn.Content)},
		})
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := chat.SendMessage(callCtx, genai.Text(req.UserPrompt))
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(extractText(resp))
	if content == "" {
		return nil, fmt.Errorf("model %s returned an empty completion", c.modelName)
	}

	tokens := 0
	if resp.UsageMetadata != nil {
		tokens = int(resp.UsageMetadata.TotalTokenCount)
	}

	return &CompletionResult{
		Content:    content,
		TokensUsed: tokens,
		Model:      c.modelName,
	}, nil
}

// apiRole maps conversation roles onto the wire roles the API accepts.
// Unrecognized roles are dropped rather than forwarded.
func apiRole(role models.Role) (string, bool) {
	switch role {
	case models.RoleInterviewer:
		return "model", true
	case models.RoleUser:
		return "user", true
	default:
		return "", false
	}
}

func isRetryableCompletion(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	// A per-call timeout counts as transient; the parent context is checked
	// separately by the retry loop.
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == 429 || gerr.Code >= 500
	}
	return false
}

func backoffDelay(attempt int) time.Duration {
	delay := backoffBase << (attempt - 1)
	if delay > backoffCap {
		delay = backoffCap
	}
	// Up to 500ms of jitter keeps concurrent retries from aligning.
	return delay + time.Duration(rand.Int63n(int64(500*time.Millisecond)))
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
