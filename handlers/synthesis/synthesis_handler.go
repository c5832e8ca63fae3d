package synthesis

import (
	"strings"

	"bhashakit/core"
	"bhashakit/events/synth"
)

// SynthesisHandler drives the text-to-speech device. Speak commands are
// normalized (markdown and emoji stripped) before they reach the device; if
// nothing speakable remains, or the device refuses the request, the handler
// synthesizes the started/ended lifecycle itself so the arbitration state
// machine still walks Speaking and comes back out.
type SynthesisHandler struct {
	core.BaseHandler
	synthesizer core.ISpeechSynthesizer
	config      Config
	advised     bool // voice advisory already emitted for this session
}

func NewSynthesisHandler(synthesizer core.ISpeechSynthesizer, cfg Config, logger *core.Logger) *SynthesisHandler {
	return &SynthesisHandler{
		BaseHandler: *core.NewBaseHandler(nil, nil, logger, nil),
		synthesizer: synthesizer,
		config:      cfg,
	}
}

func (h *SynthesisHandler) Start() error {
	go h.eventLoop()
	return nil
}

func (h *SynthesisHandler) eventLoop() {
	for {
		select {
		case <-h.Ctx.Done():
			return
		case packet := <-h.InputChan:
			h.HandleEvent(packet)
		}
	}
}

func (h *SynthesisHandler) HandleEvent(packet *core.EventPacket) error {
	switch event := packet.Event.(type) {
	case *synth.SynthSpeakEvent:
		h.onSpeak(event.Text)

	case *synth.SynthCancelEvent:
		if err := h.synthesizer.CancelSpeech(); err != nil {
			h.Logger.Warnf("failed to cancel speech: %v", err)
		}

	default:
		h.SendPacket(packet)
	}
	return nil
}

func (h *SynthesisHandler) onSpeak(text string) {
	normalized := normalizeForSpeech(text)
	if normalized == "" {
		// All emoji or markup. Walk the lifecycle without touching the device.
		h.sendTop(&synth.SynthSpeakingStartedEvent{})
		h.sendTop(&synth.SynthSpeakingEndedEvent{})
		return
	}

	h.checkVoiceAvailability()

	err := h.synthesizer.Speak(core.SpeakRequest{
		Text:     normalized,
		Language: h.config.Language,
		Rate:     h.config.Rate,
		Pitch:    h.config.Pitch,
	})
	if err != nil {
		h.Logger.Warnf("speech synthesis unavailable: %v", err)
		h.sendTop(&synth.SynthSpeakingStartedEvent{})
		h.sendTop(&synth.SynthSpeakingEndedEvent{})
	}
}

// checkVoiceAvailability emits a one-time advisory when the device reports its
// voice list and none of them covers the configured language. Speech still
// proceeds with whatever voice the device falls back to.
func (h *SynthesisHandler) checkVoiceAvailability() {
	if h.advised {
		return
	}
	voices := h.synthesizer.Voices()
	if len(voices) == 0 {
		// The device has not reported voices yet; try again next time.
		return
	}
	base := languageBase(h.config.Language)
	for _, voice := range voices {
		if languageBase(voice.Language) == base {
			return
		}
	}
	h.advised = true
	h.sendTop(&synth.SynthVoiceAdvisoryEvent{Language: h.config.Language})
}

func languageBase(tag string) string {
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		return strings.ToLower(tag[:i])
	}
	return strings.ToLower(tag)
}

func (h *SynthesisHandler) sendTop(event core.IEvent) {
	h.SendPacket(core.NewEventPacket(event, core.EventRelayDestinationTopService, "SynthesisHandler"))
}

func (h *SynthesisHandler) Reset() error {
	h.advised = false
	return h.BaseHandler.Reset()
}
