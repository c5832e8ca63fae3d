package chat

// ChatSubmitUtteranceEvent asks the chat handler to send a completed user
// utterance to the session manager.
type ChatSubmitUtteranceEvent struct {
	SessionId string
	Text      string
}

func (e *ChatSubmitUtteranceEvent) GetId() string {
	return "chat.submit_utterance"
}

type ChatReplyReadyEvent struct {
	Text string
}

func (e *ChatReplyReadyEvent) GetId() string {
	return "chat.reply_ready"
}

// ChatReplyFailedEvent carries the classified failure of an upstream call.
// Message is safe to display.
type ChatReplyFailedEvent struct {
	Kind    string
	Message string
}

func (e *ChatReplyFailedEvent) GetId() string {
	return "chat.reply_failed"
}
