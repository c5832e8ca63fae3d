package core

// RecognitionOptions configures a speech-recognition session on the device.
type RecognitionOptions struct {
	Continuous     bool
	Language       string
	InterimResults bool
}

// ISpeechRecognizer is a speech-to-text device (in practice the browser's
// recognition engine on the far side of the transport). Transcript fragments
// and error conditions come back through the pipeline as events, not as
// return values.
type ISpeechRecognizer interface {
	StartRecognition(opts RecognitionOptions) error
	// StopRecognition ends the session. With abort, pending results are
	// discarded instead of being flushed as a final transcript.
	StopRecognition(abort bool) error
}

// Voice describes one synthesis voice available on the device. The device's
// voice list may be empty at first and populate asynchronously.
type Voice struct {
	Name     string `json:"name"`
	Language string `json:"language"`
}

// SpeakRequest carries normalized text to the synthesis device.
type SpeakRequest struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
	Voice    string  `json:"voice,omitempty"`
}

// ISpeechSynthesizer is a text-to-speech playback device. Lifecycle events
// (start, end, error) come back through the pipeline.
type ISpeechSynthesizer interface {
	Speak(req SpeakRequest) error
	CancelSpeech() error
	Voices() []Voice
}
