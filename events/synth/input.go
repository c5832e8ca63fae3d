package synth

// SynthSpeakEvent triggers synthesis of an assistant reply. Text is the raw
// display text; the synthesis handler strips symbols before it reaches the
// device.
type SynthSpeakEvent struct {
	Text string
}

func (e *SynthSpeakEvent) GetId() string {
	return "synth.speak"
}

// SynthCancelEvent stops any in-flight playback immediately.
type SynthCancelEvent struct{}

func (e *SynthCancelEvent) GetId() string {
	return "synth.cancel"
}
