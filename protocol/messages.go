package protocol

import (
	"encoding/json"

	"bhashakit/core"
)

// MessageType enumerates all messages on the browser WebSocket.
type MessageType string

const (
	// Server -> browser
	MsgRecognitionStart MessageType = "recognition_start"
	MsgRecognitionStop  MessageType = "recognition_stop"
	MsgSpeak            MessageType = "speak"
	MsgSpeechCancel     MessageType = "speech_cancel"
	MsgState            MessageType = "state"
	MsgReply            MessageType = "reply"
	MsgWarning          MessageType = "warning"
	MsgVoiceAdvisory    MessageType = "voice_advisory"
	MsgError            MessageType = "error"

	// Browser -> server
	MsgStartConversation MessageType = "start_conversation"
	MsgStopConversation  MessageType = "stop_conversation"
	MsgTypedInput        MessageType = "typed_input"
	MsgTranscript        MessageType = "transcript"
	MsgRecognitionError  MessageType = "recognition_error"
	MsgSpeakingStarted   MessageType = "speaking_started"
	MsgSpeakingEnded     MessageType = "speaking_ended"
	MsgSpeechError       MessageType = "speech_error"
	MsgVoices            MessageType = "voices"
)

// Envelope is the outer JSON wrapper for all WebSocket messages.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// --- Server -> browser payloads ---

// RecognitionStartPayload asks the browser to start its recognition engine.
type RecognitionStartPayload struct {
	Options core.RecognitionOptions `json:"options"`
}

// RecognitionStopPayload ends recognition. Abort discards pending results.
type RecognitionStopPayload struct {
	Abort bool `json:"abort"`
}

// SpeakPayload asks the browser to synthesize and play text.
type SpeakPayload struct {
	Request core.SpeakRequest `json:"request"`
}

// StatePayload mirrors the arbitration state so the UI can render it.
type StatePayload struct {
	State string `json:"state"`
}

// ReplyPayload carries the assistant's display text, unstripped.
type ReplyPayload struct {
	Text string `json:"text"`
}

// WarningPayload carries a user-facing advisory line.
type WarningPayload struct {
	Message string `json:"message"`
}

// VoiceAdvisoryPayload tells the UI no installed voice covers the language.
type VoiceAdvisoryPayload struct {
	Language string `json:"language"`
}

// ErrorPayload carries a classified failure for the UI.
type ErrorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// --- Browser -> server payloads ---

// TypedInputPayload is a message the user typed instead of speaking.
type TypedInputPayload struct {
	Text string `json:"text"`
}

// TranscriptPayload is a recognition result. Interim results carry the
// cumulative transcript so far; Final marks the engine's own end-of-utterance.
type TranscriptPayload struct {
	Text  string `json:"text"`
	Final bool   `json:"final"`
}

// RecognitionErrorPayload reports a recognition engine failure, using the
// Web Speech API error codes ("no-speech", "not-allowed", "audio-capture").
type RecognitionErrorPayload struct {
	Code string `json:"code"`
}

// SpeechErrorPayload reports a synthesis playback failure.
type SpeechErrorPayload struct {
	Code string `json:"code"`
}

// VoicesPayload reports the browser's installed synthesis voices. Sent on
// connect and again when the list populates asynchronously.
type VoicesPayload struct {
	Voices []core.Voice `json:"voices"`
}
