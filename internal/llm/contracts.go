package llm

import "context"

// ChatParameters are the decoding settings sent with every completion.
type ChatParameters struct {
	Deployment       string
	MaxTokens        int
	Temperature      float32
	TopP             float32
	FrequencyPenalty float32
	PresencePenalty  float32
	Stop             []string
}

// FewShot is one example exchange placed between the instruction and the
// document text.
type FewShot struct {
	UserInput       string `json:"userInput"`
	AssistantOutput string `json:"chatbotResponse"`
}

type EntityRequest struct {
	Text        string
	Instruction string // system turn; DefaultInstruction when empty
	Examples    []FewShot
	FileName    string // logging only
}

// EntityExtractor is the interface the translate stage depends on.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, req EntityRequest) ([]string, error)
}
