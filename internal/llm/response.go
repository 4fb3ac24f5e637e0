package llm

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/thomasdrewthomas/azure-ai-translator-accelerators/internal/common"
)

// completionSchema accepts any chat completion envelope whose choices, when
// present, carry a string message content.
const completionSchema = `{
  "type": "object",
  "properties": {
    "choices": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["message"],
        "properties": {
          "message": {
            "type": "object",
            "properties": {"content": {"type": ["string", "null"]}}
          }
        }
      }
    }
  }
}`

var (
	compiledOnce sync.Once
	compiled     *jsonschema.Schema
	compileErr   error
)

func envelopeSchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		compiled, compileErr = common.CompileSchema("completion.json", []byte(completionSchema))
	})
	return compiled, compileErr
}

// ParseResponse returns the trimmed, non-empty lines of the first choice.
// An envelope without choices yields an empty list and no error.
func ParseResponse(raw []byte) ([]string, error) {
	schema, err := envelopeSchema()
	if err != nil {
		return nil, err
	}
	if err := common.ValidateJSON(schema, raw); err != nil {
		return nil, err
	}
	var cc struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, fmt.Errorf("decode completion: %w", err)
	}
	if len(cc.Choices) == 0 {
		return []string{}, nil
	}
	return SplitLines(cc.Choices[0].Message.Content), nil
}

// SplitLines splits on \n or \r\n, trims each line and drops empties.
func SplitLines(text string) []string {
	out := []string{}
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}
