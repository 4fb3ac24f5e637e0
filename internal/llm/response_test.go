package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse(t *testing.T) {
	raw := []byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"  ACME Corp \r\n\n 1 Rue de Rivoli\nParis  "}}]}`)
	got, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"ACME Corp", "1 Rue de Rivoli", "Paris"}, got)
}

func TestParseResponseNoChoices(t *testing.T) {
	got, err := ParseResponse([]byte(`{"id":"x"}`))
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = ParseResponse([]byte(`{"choices":[]}`))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestParseResponseRejectsMalformedEnvelope(t *testing.T) {
	_, err := ParseResponse([]byte(`{"choices":[{"text":"legacy"}]}`))
	assert.Error(t, err)

	_, err = ParseResponse([]byte(`not json`))
	assert.Error(t, err)
}

func TestBuildMessagesOrder(t *testing.T) {
	msgs := BuildMessages(EntityRequest{
		Text:        "doc",
		Instruction: "names only",
		Examples: []FewShot{
			{UserInput: "u1", AssistantOutput: "a1"},
			{UserInput: "u2", AssistantOutput: "a2"},
		},
	})
	var roles []string
	for _, m := range msgs {
		roles = append(roles, m.Role)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user", "assistant", "user"}, roles)
	assert.Equal(t, "names only", msgs[0].Content)
	assert.Equal(t, "doc", msgs[5].Content)
}
