package app

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/llm"
)

func TestLayoutFrom(t *testing.T) {
	cfg := common.DefaultConfig()
	cfg.Storage.AccountURL = "https://acct.blob.core.windows.net"
	cfg.Storage.SASToken = "sig=x"

	l := LayoutFrom(cfg.Storage)
	assert.Equal(t, "https://acct.blob.core.windows.net/translation-service/landing-zone/a%20b.pdf?sig=x", l.LandingURL("a b.pdf"))
	assert.Equal(t, "watermark/a.pdf", l.Key(l.WatermarkPrefix, "a.pdf"))
}

func TestNewLoggerLevels(t *testing.T) {
	assert.True(t, NewLogger("debug").Enabled(t.Context(), slog.LevelDebug))
	assert.False(t, NewLogger("warn").Enabled(t.Context(), slog.LevelInfo))
	assert.True(t, NewLogger("bogus").Enabled(t.Context(), slog.LevelInfo))
}

func TestFewShotFrom(t *testing.T) {
	assert.Nil(t, FewShotFrom(common.LLMConfig{}))

	got := FewShotFrom(common.LLMConfig{FewShotExamples: []common.FewShotExample{
		{UserInput: "Invoice from ACME Corp", ChatbotResponse: "ACME Corp"},
	}})
	assert.Equal(t, []llm.FewShot{{UserInput: "Invoice from ACME Corp", AssistantOutput: "ACME Corp"}}, got)
}

func TestCloseRunsClosersInReverseOnce(t *testing.T) {
	var order []string
	a := &App{closers: []func(){
		func() { order = append(order, "db") },
		func() { order = append(order, "redis") },
	}}

	a.Close()
	a.Close()
	assert.Equal(t, []string{"redis", "db"}, order)
}
