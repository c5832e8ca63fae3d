package stt

import "bhashakit/core"

// STTStartRecognitionEvent commands the recognition handler to open the
// microphone with the given options.
type STTStartRecognitionEvent struct {
	Options core.RecognitionOptions
}

func (e *STTStartRecognitionEvent) GetId() string {
	return "stt.start_recognition"
}

// STTStopRecognitionEvent commands the recognition handler to stop capture.
// Abort discards any in-flight partial result instead of flushing it.
type STTStopRecognitionEvent struct {
	Abort bool
}

func (e *STTStopRecognitionEvent) GetId() string {
	return "stt.stop_recognition"
}
