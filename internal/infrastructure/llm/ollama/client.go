package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/resilience"
)

// Options are the sampling settings used for one task kind.
type Options struct {
	Temperature float64
	NumPredict  int
	Timeout     time.Duration
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
	options    map[domain.TaskKind]Options
}

func New(baseURL, model string, classify, analyze Options, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
		options: map[domain.TaskKind]Options{
			domain.TaskClassify: withDefaults(classify, Options{Temperature: 0.1, NumPredict: 500, Timeout: 20 * time.Second}),
			domain.TaskAnalyze:  withDefaults(analyze, Options{Temperature: 0.2, NumPredict: 2000, Timeout: 45 * time.Second}),
		},
	}
}

func withDefaults(o, def Options) Options {
	if o.Temperature <= 0 {
		o.Temperature = def.Temperature
	}
	if o.NumPredict <= 0 {
		o.NumPredict = def.NumPredict
	}
	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}
	return o
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format"`
	Options  map[string]any `json:"options"`
}

type chatResponse struct {
	Message         chatMessage `json:"message"`
	Done            bool        `json:"done"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

// Complete implements the completion gateway against a local Ollama server
// using /api/chat in JSON mode.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string, task domain.AnalysisTask) (string, error) {
	op := "ollama " + string(task.Kind)
	opts, ok := c.options[task.Kind]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("unknown task kind %q", task.Kind))
	}

	callCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	request := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: false,
		Format: "json",
		Options: map[string]any{
			"temperature": opts.Temperature,
			"num_predict": opts.NumPredict,
		},
	}

	response, err := resilience.Call(callCtx, c.executor, op, func(ctx context.Context) (chatResponse, error) {
		var out chatResponse
		err := c.postJSON(ctx, "/api/chat", request, &out, "chat")
		return out, err
	}, classifyOllamaError)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", domain.WrapError(domain.ErrGateway, op, domain.WrapError(domain.ErrTimeout, "completion", err))
		}
		return "", domain.WrapError(domain.ErrGateway, op, err)
	}

	content := strings.TrimSpace(response.Message.Content)
	if content == "" {
		return "", domain.WrapError(domain.ErrEmptyCompletion, op, errors.New("empty message content"))
	}
	return content, nil
}
