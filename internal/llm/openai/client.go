package openai

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
)

type chatRequest struct {
	Model            string        `json:"model,omitempty"`
	Messages         []llm.Message `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float32       `json:"temperature"`
	TopP             float32       `json:"top_p"`
	FrequencyPenalty float32       `json:"frequency_penalty"`
	PresencePenalty  float32       `json:"presence_penalty"`
	Stop             []string      `json:"stop,omitempty"`
}

// ExtractEntities implements llm.EntityExtractor. Transport and non-2xx
// failures are reported as common.ErrModel; there is no retry.
func (c *Client) ExtractEntities(ctx context.Context, req llm.EntityRequest) ([]string, error) {
	rid := uuid.New().String()
	start := time.Now()
	p := c.cfg.Params

	c.logger.Info("llm.extract.start",
		"req_id", rid,
		"file_name", req.FileName,
		"deployment", p.Deployment,
		"text_len", len(req.Text),
		"examples", len(req.Examples),
		"custom_instruction", req.Instruction != "",
	)

	body := chatRequest{
		Messages:         llm.BuildMessages(req),
		MaxTokens:        p.MaxTokens,
		Temperature:      p.Temperature,
		TopP:             p.TopP,
		FrequencyPenalty: p.FrequencyPenalty,
		PresencePenalty:  p.PresencePenalty,
		Stop:             p.Stop,
	}
	endpoint, headers := c.route()
	if p.Deployment == "" {
		body.Model = c.cfg.Model
	}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.logger)
	if err != nil {
		c.logger.Error("llm.extract.http_error",
			"req_id", rid, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.Errorf(common.ErrModel, "chat completion: %v", err)
	}

	entities, err := llm.ParseResponse(raw)
	if err != nil {
		c.logger.Error("llm.extract.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, common.Errorf(common.ErrModel, "parse completion: %v", err)
	}
	if len(entities) == 0 {
		c.logger.Warn("llm.extract.empty", "req_id", rid, "file_name", req.FileName)
	}

	c.logger.Info("llm.extract.ok",
		"req_id", rid,
		"file_name", req.FileName,
		"entities", len(entities),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return entities, nil
}

// route picks the Azure deployment URL when a deployment is configured.
func (c *Client) route() (string, map[string]string) {
	base := strings.TrimRight(c.cfg.Endpoint, "/")
	if d := c.cfg.Params.Deployment; d != "" {
		u := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			base, url.PathEscape(d), url.QueryEscape(c.cfg.APIVersion))
		return u, map[string]string{"api-key": c.cfg.APIKey}
	}
	return base + "/chat/completions", map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}
}
