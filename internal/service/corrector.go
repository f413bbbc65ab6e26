package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/adrianoneco/app-chatapp/internal/model"

	"github.com/valyala/fasthttp"
)

// ErrCorrectorDisabled is returned when no AI API key is configured.
var ErrCorrectorDisabled = errors.New("AI text correction is not configured")

const (
	maxCorrectionRunes = 4000
	correctorTimeout   = 20 * time.Second

	correctionPrompt = `You are an assistant that proofreads Brazilian Portuguese text.
Fix spelling, grammar, punctuation and accentuation errors in the text you receive.
Keep the original tone and meaning of the message.
Reply with ONLY the corrected text, without explanations or comments.
If the text is already correct, return it unchanged.`
)

// GroqCorrector calls an OpenAI-compatible chat completions endpoint (Groq by
// default) to proofread message drafts.
type GroqCorrector struct {
	client  *fasthttp.Client
	baseURL string
	apiKey  string
	model   string
}

func NewGroqCorrector(baseURL, apiKey, model string) *GroqCorrector {
	return &GroqCorrector{
		client: &fasthttp.Client{
			Name:                "chatapp",
			ReadTimeout:         correctorTimeout,
			WriteTimeout:        correctorTimeout,
			MaxIdleConnDuration: time.Minute,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *GroqCorrector) Correct(ctx context.Context, p *model.Principal, text string) (*model.CorrectTextResponse, error) {
	if p == nil {
		return nil, ErrInvalidToken
	}
	if g.apiKey == "" {
		return nil, ErrCorrectorDisabled
	}
	if strings.TrimSpace(text) == "" {
		return nil, invalid("text", "is required")
	}
	if utf8.RuneCountInString(text) > maxCorrectionRunes {
		return nil, invalid("text", fmt.Sprintf("must be at most %d characters", maxCorrectionRunes))
	}

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: correctionPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.2,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(g.baseURL + "/chat/completions")
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.SetBody(body)

	timeout := correctorTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d < timeout {
			timeout = d
		}
	}
	if err := g.client.DoTimeout(req, resp, timeout); err != nil {
		return nil, &StorageError{Op: "correct text", Err: err}
	}
	if resp.StatusCode() != fasthttp.StatusOK {
		return nil, &StorageError{Op: "correct text", Err: fmt.Errorf("upstream status %d: %s", resp.StatusCode(), truncate(string(resp.Body()), 200))}
	}

	var out chatResponse
	if err := json.Unmarshal(resp.Body(), &out); err != nil {
		return nil, &StorageError{Op: "correct text", Err: fmt.Errorf("decode completion: %w", err)}
	}

	corrected := text
	if len(out.Choices) > 0 && strings.TrimSpace(out.Choices[0].Message.Content) != "" {
		corrected = out.Choices[0].Message.Content
	}
	return &model.CorrectTextResponse{
		Original:   text,
		Corrected:  corrected,
		WasChanged: corrected != text,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
