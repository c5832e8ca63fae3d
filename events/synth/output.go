package synth

type SynthSpeakingStartedEvent struct{}

func (e *SynthSpeakingStartedEvent) GetId() string {
	return "synth.speaking_started"
}

type SynthSpeakingEndedEvent struct{}

func (e *SynthSpeakingEndedEvent) GetId() string {
	return "synth.speaking_ended"
}

// SynthErrorEvent reports a synthesis device failure. Code is the platform
// error identifier, e.g. "synthesis-failed", "interrupted".
type SynthErrorEvent struct {
	Code string
}

func (e *SynthErrorEvent) GetId() string {
	return "synth.error"
}

// SynthVoiceAdvisoryEvent is a non-fatal notice that no voice matching the
// target language is available on the device; playback may fall back to a
// default voice or be silent.
type SynthVoiceAdvisoryEvent struct {
	Language string
}

func (e *SynthVoiceAdvisoryEvent) GetId() string {
	return "synth.voice_advisory"
}
