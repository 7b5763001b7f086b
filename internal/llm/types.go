package llm

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a chat completion request.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
}

// CompletionResponse is the result of a completion request.
type CompletionResponse struct {
	Content string
	Model   string
}
