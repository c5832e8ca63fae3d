package core

import "context"

type ChatRole string

const (
	ChatRolePriming   ChatRole = "priming" // Fixed persona/instruction turns, never evicted.
	ChatRoleUser      ChatRole = "user"
	ChatRoleAssistant ChatRole = "assistant"
)

// ChatMessage is one turn of a conversation transcript.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}

// IChatService is an upstream chat-completion collaborator. GenerateReply
// receives every retained prior turn in order plus the new user utterance and
// returns the assistant's reply text. Failures are reported as *ChatError so
// callers can map them to the error taxonomy.
type IChatService interface {
	IService
	GenerateReply(ctx context.Context, history []ChatMessage, userText string) (string, error)
}
