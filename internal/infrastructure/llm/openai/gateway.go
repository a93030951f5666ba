package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/kirillkom/poa-analyzer/internal/core/domain"
	"github.com/kirillkom/poa-analyzer/internal/infrastructure/resilience"
)

const DefaultModel = "gpt-4o-mini"

// TaskParams are the generation parameters used for one task kind.
type TaskParams struct {
	Model       string
	Temperature float64
	MaxTokens   int64
	Timeout     time.Duration
}

func DefaultClassifyParams() TaskParams {
	return TaskParams{Model: DefaultModel, Temperature: 0.1, MaxTokens: 500, Timeout: 20 * time.Second}
}

func DefaultAnalyzeParams() TaskParams {
	return TaskParams{Model: DefaultModel, Temperature: 0.2, MaxTokens: 2000, Timeout: 45 * time.Second}
}

type Config struct {
	APIKey     string
	BaseURL    string
	Classify   TaskParams
	Analyze    TaskParams
	HTTPClient *http.Client
}

// Gateway sends chat completions in JSON mode through the official SDK.
// The SDK's own retries are disabled; the resilience executor owns the
// breaker and the attempt policy.
type Gateway struct {
	client   openai.Client
	apiKey   string
	params   map[domain.TaskKind]TaskParams
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) *Gateway {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}

	return &Gateway{
		client:   openai.NewClient(opts...),
		apiKey:   cfg.APIKey,
		params:   map[domain.TaskKind]TaskParams{domain.TaskClassify: withDefaults(cfg.Classify, DefaultClassifyParams()), domain.TaskAnalyze: withDefaults(cfg.Analyze, DefaultAnalyzeParams())},
		executor: executor,
	}
}

func withDefaults(p, def TaskParams) TaskParams {
	if strings.TrimSpace(p.Model) == "" {
		p.Model = def.Model
	}
	if p.Temperature <= 0 {
		p.Temperature = def.Temperature
	}
	if p.MaxTokens <= 0 {
		p.MaxTokens = def.MaxTokens
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

func (g *Gateway) Complete(ctx context.Context, systemPrompt, userPrompt string, task domain.AnalysisTask) (string, error) {
	op := "openai " + string(task.Kind)
	params, ok := g.params[task.Kind]
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, op, fmt.Errorf("unknown task kind %q", task.Kind))
	}
	if strings.TrimSpace(g.apiKey) == "" {
		return "", domain.WrapError(domain.ErrGateway, op, errors.New("api key is not configured"))
	}

	callCtx, cancel := context.WithTimeout(ctx, params.Timeout)
	defer cancel()

	started := time.Now()
	resp, err := resilience.Call(callCtx, g.executor, op, func(ctx context.Context) (*openai.ChatCompletion, error) {
		return g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
			Model: openai.ChatModel(params.Model),
			Messages: []openai.ChatCompletionMessageParamUnion{
				openai.SystemMessage(systemPrompt),
				openai.UserMessage(userPrompt),
			},
			Temperature:         openai.Float(params.Temperature),
			MaxCompletionTokens: openai.Int(params.MaxTokens),
			ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			},
		})
	}, classifyOpenAIError)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return "", domain.WrapError(domain.ErrGateway, op, domain.WrapError(domain.ErrTimeout, "completion", err))
		}
		return "", domain.WrapError(domain.ErrGateway, op, describeOpenAIError(err))
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", domain.WrapError(domain.ErrEmptyCompletion, op, fmt.Errorf("no %s text was returned", resultNoun(task.Kind)))
	}

	slog.Info("completion_done",
		"task", task.Kind,
		"model", params.Model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"finish_reason", resp.Choices[0].FinishReason,
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return resp.Choices[0].Message.Content, nil
}

func describeOpenAIError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return fmt.Errorf("openai status %d: %s", apiErr.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("openai status %d", apiErr.StatusCode)
	}
	return err
}

func classifyOpenAIError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func resultNoun(kind domain.TaskKind) string {
	if kind == domain.TaskAnalyze {
		return "analysis"
	}
	return "classification"
}
