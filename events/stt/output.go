package stt

// STTInterimOutputEvent carries an incremental transcript snapshot from the
// recognition device. The arbitration handler debounces these to detect the
// end of an utterance.
type STTInterimOutputEvent struct {
	Text string
}

func (e *STTInterimOutputEvent) GetId() string {
	return "stt.interim_output"
}

type STTFinalOutputEvent struct {
	Text string
}

func (e *STTFinalOutputEvent) GetId() string {
	return "stt.final_output"
}

type STTListeningStartedEvent struct{}

func (e *STTListeningStartedEvent) GetId() string {
	return "stt.listening_started"
}

type STTListeningStoppedEvent struct{}

func (e *STTListeningStoppedEvent) GetId() string {
	return "stt.listening_stopped"
}

// STTErrorEvent reports a recognition device failure. Code is the platform
// error identifier, e.g. "no-speech", "audio-capture", "not-allowed",
// "network", "not-supported".
type STTErrorEvent struct {
	Code string
}

func (e *STTErrorEvent) GetId() string {
	return "stt.error"
}
