package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/scholarship-pipeline/internal/core/domain"
	"github.com/kirillkom/scholarship-pipeline/internal/core/rubric"
	"github.com/kirillkom/scholarship-pipeline/internal/infrastructure/resilience"
)

const (
	operationClassify = "ollama.classify"
	operationScore    = "ollama.score"
)

type Options struct {
	// Timeout bounds a single HTTP round trip.
	Timeout       time.Duration
	RatePerSecond float64
	Executor      *resilience.Executor
}

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
	limiter    *rate.Limiter
	exec       *resilience.Executor
}

func New(baseURL, model string, opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), max(int(opts.RatePerSecond), 1))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    limiter,
		exec:       opts.Executor,
	}
}

// Oracle answers classification and scoring questions through the Ollama
// generate API.
type Oracle struct {
	client *Client
}

func NewOracle(client *Client) *Oracle {
	return &Oracle{client: client}
}

func (o *Oracle) ClassifyDocument(ctx context.Context, name, excerpt string) (domain.OracleClassification, error) {
	respText, err := o.client.generateJSON(ctx, operationClassify, buildClassificationPrompt(name, excerpt))
	if err != nil {
		return domain.OracleClassification{}, err
	}

	var result domain.OracleClassification
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.OracleClassification{}, domain.WrapError(domain.ErrOracleMalformed, operationClassify, fmt.Errorf("parse classification json: %w", err))
	}
	if strings.TrimSpace(result.Category) == "" {
		return domain.OracleClassification{}, domain.WrapError(domain.ErrOracleMalformed, operationClassify, fmt.Errorf("classification without category"))
	}
	return result, nil
}

func (o *Oracle) ScoreDocument(ctx context.Context, category domain.Category, def rubric.Definition, excerpt string) (domain.OracleScore, error) {
	respText, err := o.client.generateJSON(ctx, operationScore, buildScoringPrompt(category, def, excerpt))
	if err != nil {
		return domain.OracleScore{}, err
	}

	var result domain.OracleScore
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &result); err != nil {
		return domain.OracleScore{}, domain.WrapError(domain.ErrOracleMalformed, operationScore, fmt.Errorf("parse score json: %w", err))
	}
	if len(result.CriteriaScores) == 0 {
		return domain.OracleScore{}, domain.WrapError(domain.ErrOracleMalformed, operationScore, fmt.Errorf("score without criteria_scores"))
	}
	return result, nil
}

func (c *Client) generateJSON(ctx context.Context, operation, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
		"options": map[string]any{
			"temperature": 0,
		},
	}
	text, err := resilience.Call(ctx, c.exec, operation, func(callCtx context.Context) (string, error) {
		if c.limiter != nil {
			if err := c.limiter.Wait(callCtx); err != nil {
				return "", err
			}
		}
		return c.generate(callCtx, operation, reqBody)
	}, classifyOllamaError)
	if err != nil {
		return "", mapOracleError(operation, err)
	}
	return text, nil
}

func (c *Client) generate(ctx context.Context, operation string, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, operation); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
