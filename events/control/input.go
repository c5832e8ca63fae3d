package control

// ControlStartConversationEvent is the explicit user command to begin
// listening.
type ControlStartConversationEvent struct{}

func (e *ControlStartConversationEvent) GetId() string {
	return "control.start_conversation"
}

// ControlStopConversationEvent is the explicit user command to stop
// everything: recognition, synthesis, and any pending utterance.
type ControlStopConversationEvent struct{}

func (e *ControlStopConversationEvent) GetId() string {
	return "control.stop_conversation"
}

// ControlTypedInputEvent carries a message the user typed instead of spoke.
// Typed and spoken input are mutually exclusive per turn.
type ControlTypedInputEvent struct {
	Text string
}

func (e *ControlTypedInputEvent) GetId() string {
	return "control.typed_input"
}

// ControlStateChangedEvent notifies the transport of an arbitration state
// transition so the UI can reflect it.
type ControlStateChangedEvent struct {
	State string
}

func (e *ControlStateChangedEvent) GetId() string {
	return "control.state_changed"
}
