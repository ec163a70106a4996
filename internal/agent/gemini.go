package agent

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/casefile/inquest/internal/config"
)

// ErrModelUnavailable wraps model-boundary failures that survived the single
// retry. Session-fatal.
var ErrModelUnavailable = errors.New("model unavailable")

// GeminiClient implements ModelClient over the Gemini API. All calls go
// through a shared token-bucket limiter and a per-call timeout, with one
// retry on transient failure.
type GeminiClient struct {
	client  *genai.Client
	model   string
	limiter *rate.Limiter
	timeout time.Duration
}

// NewGeminiClient builds a client from config. The API key is read from the
// environment variable named in the config, never from the file itself.
func NewGeminiClient(ctx context.Context, cfg config.ModelConfig) (*GeminiClient, error) {
	apiKey := os.Getenv(cfg.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("model API key: environment variable %s is not set", cfg.APIKeyEnv)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	return &GeminiClient{
		client:  client,
		model:   cfg.Name,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

// StartConversation opens a tool-enabled chat.
func (g *GeminiClient) StartConversation(ctx context.Context, systemPrompt string) (Conversation, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
		Tools: []*genai.Tool{
			{FunctionDeclarations: toolDeclarations()},
		},
	}
	chat, err := g.client.Chats.Create(ctx, g.model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: start conversation: %v", ErrModelUnavailable, err)
	}
	return &geminiConversation{client: g, chat: chat}, nil
}

// Generate answers one prompt without tools.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.call(ctx, func(cctx context.Context) error {
		resp, err := g.client.Models.GenerateContent(cctx, g.model,
			[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
		if err != nil {
			return err
		}
		out = resp.Text()
		return nil
	})
	return out, err
}

// Close satisfies ModelClient. The API client is connectionless; there is
// nothing to release.
func (g *GeminiClient) Close() error {
	return nil
}

// call applies rate limiting, the per-call timeout, and a single retry on
// transient failure.
func (g *GeminiClient) call(ctx context.Context, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
		cctx, cancel := context.WithTimeout(ctx, g.timeout)
		err := fn(cctx)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: %v", ErrModelUnavailable, lastErr)
}

type geminiConversation struct {
	client *GeminiClient
	chat   *genai.Chat
}

func (c *geminiConversation) Send(ctx context.Context, text string) (*Turn, error) {
	return c.send(ctx, genai.Part{Text: text})
}

func (c *geminiConversation) SendToolResults(ctx context.Context, results []ToolResult) (*Turn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		resp := map[string]any{"output": r.Output}
		if r.IsError {
			resp = map[string]any{"error": r.Output}
		}
		parts = append(parts, genai.Part{
			FunctionResponse: &genai.FunctionResponse{Name: r.Name, Response: resp},
		})
	}
	return c.send(ctx, parts...)
}

func (c *geminiConversation) send(ctx context.Context, parts ...genai.Part) (*Turn, error) {
	var resp *genai.GenerateContentResponse
	err := c.client.call(ctx, func(cctx context.Context) error {
		var err error
		resp, err = c.chat.SendMessage(cctx, parts...)
		return err
	})
	if err != nil {
		return nil, err
	}

	turn := &Turn{Text: resp.Text()}
	for _, fc := range resp.FunctionCalls() {
		turn.Calls = append(turn.Calls, ToolInvocation{Name: fc.Name, Args: fc.Args})
	}
	return turn, nil
}

// toolDeclarations describes the closed tool set to the model. The intent
// parameter is identical on every tool.
func toolDeclarations() []*genai.FunctionDeclaration {
	intent := &genai.Schema{
		Type:        genai.TypeString,
		Description: "Mandatory justification wrapped in <intent>...</intent>: one sentence on how this call advances the investigation.",
	}
	terms := &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: "Search terms. Multi-word terms match as phrases.",
	}
	fuzzy := &genai.Schema{Type: genai.TypeBoolean, Description: "Tolerate spelling variants and OCR errors."}
	cooccur := &genai.Schema{Type: genai.TypeBoolean, Description: "Require all terms in the same document (default: any term)."}

	return []*genai.FunctionDeclaration{
		{
			Name:        "count",
			Description: "Count documents matching the terms without retrieving them. Use first to gauge volume.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent": intent, "terms": terms, "fuzzy": fuzzy, "cooccur": cooccur,
				},
				Required: []string{"intent", "terms"},
			},
		},
		{
			Name:        "search",
			Description: "Search the corpus. Returns ranked document IDs with highlight fragments. Fragments are for triage only and are never citable.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent": intent, "terms": terms, "fuzzy": fuzzy, "cooccur": cooccur,
					"limit":         {Type: genai.TypeInteger, Description: "Maximum results to return."},
					"exclude":       {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}, Description: "Terms whose presence disqualifies a document (boilerplate suppression)."},
					"min_pages":     {Type: genai.TypeInteger},
					"max_pages":     {Type: genai.TypeInteger},
					"fragment_size": {Type: genai.TypeInteger},
					"fragments":     {Type: genai.TypeInteger},
				},
				Required: []string{"intent", "terms"},
			},
		},
		{
			Name:        "read",
			Description: "Read one document in full. Only text retrieved through read or read_batch may be quoted in the final answer.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent":    intent,
					"doc_id":    {Type: genai.TypeString, Description: "Document identifier (Bates number)."},
					"max_chars": {Type: genai.TypeInteger},
				},
				Required: []string{"intent", "doc_id"},
			},
		},
		{
			Name:        "read_batch",
			Description: "Read many documents under one shared character budget. Use for deep sweeps over surfaced result sets.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent":          intent,
					"doc_ids":         {Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}},
					"max_chars_total": {Type: genai.TypeInteger},
				},
				Required: []string{"intent", "doc_ids"},
			},
		},
		{
			Name:        "list",
			Description: "List document names, optionally filtered by a query. Use to orient in the corpus.",
			Parameters: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"intent": intent,
					"query":  {Type: genai.TypeString},
					"fuzzy":  fuzzy,
				},
				Required: []string{"intent"},
			},
		},
	}
}
