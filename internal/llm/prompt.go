package llm

// DefaultInstruction asks for location addresses, one line each, untouched.
const DefaultInstruction = "- Extract all location addresses from the provided text. \n" +
	"- Maintain the original address format. If the address spans multiple lines, keep it multiline. \n" +
	"- Do not translate or modify the content. \n" +
	"- Extract each line of the address in a separate line. \n" +
	"- Provide only the extracted addresses without adding any additional text.\n"

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// BuildMessages orders the conversation as system instruction, example
// pairs, then the document text as the final user turn.
func BuildMessages(req EntityRequest) []Message {
	instruction := req.Instruction
	if instruction == "" {
		instruction = DefaultInstruction
	}
	msgs := make([]Message, 0, 2+2*len(req.Examples))
	msgs = append(msgs, Message{Role: "system", Content: instruction})
	for _, ex := range req.Examples {
		msgs = append(msgs,
			Message{Role: "user", Content: ex.UserInput},
			Message{Role: "assistant", Content: ex.AssistantOutput},
		)
	}
	return append(msgs, Message{Role: "user", Content: req.Text})
}
