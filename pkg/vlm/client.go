// Package vlm provides a client for an Ollama-compatible vision/language model backend.
package vlm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"meme-guard-go/internal/config"
	"meme-guard-go/internal/model"
	"meme-guard-go/pkg/log"
	"meme-guard-go/pkg/metrics"
)

// ErrMalformedOutput 表示模型返回的 response 字段无法解析为结构化分析。
var ErrMalformedOutput = errors.New("vlm returned malformed analysis payload")

// Client defines the capabilities the pipeline needs from the model backend.
type Client interface {
	// Analyze 对一张图片执行视觉分析，返回结构化结果。
	Analyze(ctx context.Context, image []byte, prompt string) (model.StructuredAnalysis, error)
	// Generate 调用文本模型，返回原始文本输出。
	Generate(ctx context.Context, prompt string) (string, error)
}

type ollamaClient struct {
	cfg     config.VLMConfig
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
}

// NewClient creates a new VLM client. Each call is bounded by cfg.Timeout,
// retried up to cfg.MaxRetries times, guarded by a circuit breaker, and
// throttled to cfg.RateLimit requests per second when that is positive.
func NewClient(cfg config.VLMConfig) Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = retryablehttp.LeveledLogger(log.Leveled{})
	httpClient := retryClient.StandardClient()
	httpClient.Timeout = cfg.Timeout

	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "vlm",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("[VLMClient] 熔断器 %s 状态变化: %s -> %s", name, from, to)
		},
	})

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	return &ollamaClient{
		cfg:     cfg,
		client:  httpClient,
		breaker: breaker,
		limiter: limiter,
	}
}

type generateRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images,omitempty"`
	Stream bool     `json:"stream"`
	Format string   `json:"format,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Analyze sends the base64-encoded image with the analysis prompt and parses
// the JSON payload carried in the response envelope.
func (c *ollamaClient) Analyze(ctx context.Context, image []byte, prompt string) (model.StructuredAnalysis, error) {
	reqBody := generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Images: []string{base64.StdEncoding.EncodeToString(image)},
		Stream: false,
		Format: "json",
	}
	payload, err := c.generate(ctx, "analyze", reqBody)
	if err != nil {
		return model.StructuredAnalysis{}, err
	}
	analysis, err := ParseAnalysis(payload)
	if err != nil {
		metrics.VLMCalls.WithLabelValues("analyze", "malformed").Inc()
		return model.StructuredAnalysis{}, err
	}
	return analysis, nil
}

// Generate calls the text model and returns its raw response text.
func (c *ollamaClient) Generate(ctx context.Context, prompt string) (string, error) {
	reqBody := generateRequest{
		Model:  c.cfg.TextModel,
		Prompt: prompt,
		Stream: false,
	}
	return c.generate(ctx, "generate", reqBody)
}

func (c *ollamaClient) generate(ctx context.Context, kind string, reqBody generateRequest) (string, error) {
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			metrics.VLMCalls.WithLabelValues(kind, "throttled").Inc()
			return "", fmt.Errorf("vlm %s rate limit wait: %w", kind, err)
		}
	}

	start := time.Now()
	var envelope generateResponse
	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(ctx, reqBytes, &envelope)
	})
	metrics.VLMDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.VLMCalls.WithLabelValues(kind, "error").Inc()
		return "", fmt.Errorf("vlm %s (model=%s): %w", kind, reqBody.Model, err)
	}
	metrics.VLMCalls.WithLabelValues(kind, "ok").Inc()
	return envelope.Response, nil
}

func (c *ollamaClient) do(ctx context.Context, reqBytes []byte, out *generateResponse) error {
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.URL, bytes.NewReader(reqBytes))
	if err != nil {
		return fmt.Errorf("failed to create generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call generate api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("generate api returned non-200 status: %s, body: %s", resp.Status, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode generate response: %w", err)
	}
	return nil
}
