package arbitration

import (
	"context"
	"strings"
	"sync"
	"time"

	"bhashakit/core"
	"bhashakit/events/chat"
	"bhashakit/events/control"
	"bhashakit/events/stt"
	"bhashakit/events/synth"
)

// State is the arbitration state. Exactly one holds at a time.
type State string

const (
	StateIdle       State = "idle"
	StateListening  State = "listening"
	StateProcessing State = "processing" // awaiting the assistant reply
	StateSpeaking   State = "speaking"
)

// ArbitrationHandler coordinates microphone capture, utterance submission and
// reply playback so that recognition and synthesis are never simultaneously
// active. It owns the silence-debounce timer that segments utterances and the
// hard-cancel path that stops everything atomically.
//
//   - Idle -> Listening on an explicit start command, or after Speaking while
//     the conversation is still active.
//   - Listening -> Processing when the transcript is non-empty and no new
//     fragment arrived for SilenceTimeout. Recognition is stopped on entry.
//   - Processing -> Speaking when a non-empty reply arrives; -> Idle on error
//     or empty reply.
//   - Speaking -> Listening/Idle on synthesis completion, error or cancel.
//
// Stale device callbacks (a completion racing a cancel) are dropped by
// checking the current state before acting.
type ArbitrationHandler struct {
	core.BaseHandler

	mu sync.Mutex

	state      State
	active     bool // conversation started and not stopped
	transcript string

	silenceTimer *time.Timer

	// submitChan receives a signal when the silence timer fires.
	submitChan chan struct{}

	config Config
}

// dummyService is a no-op IService required by BaseHandler.
type dummyService struct{}

func (s *dummyService) Init(_ context.Context) error { return nil }
func (s *dummyService) Cleanup() error               { return nil }
func (s *dummyService) Reset() error                 { return nil }

// NewArbitrationHandler creates a new ArbitrationHandler.
func NewArbitrationHandler(cfg Config, logger *core.Logger) *ArbitrationHandler {
	if cfg.SilenceTimeout == 0 {
		cfg.SilenceTimeout = 1500 * time.Millisecond
	}
	return &ArbitrationHandler{
		BaseHandler: *core.NewBaseHandler(&dummyService{}, nil, logger, nil),
		state:       StateIdle,
		config:      cfg,
	}
}

func (h *ArbitrationHandler) Initialize(
	inputChan <-chan *core.EventPacket,
	outputNextChan chan<- *core.EventPacket,
	outputTopChan chan<- *core.EventPacket,
	ctx context.Context,
) error {
	h.submitChan = make(chan struct{}, 1)
	return h.BaseHandler.Initialize(inputChan, outputNextChan, outputTopChan, ctx)
}

func (h *ArbitrationHandler) Start() error {
	go h.eventLoop()
	return nil
}

func (h *ArbitrationHandler) eventLoop() {
	for {
		select {
		case <-h.Ctx.Done():
			return
		case packet := <-h.InputChan:
			h.HandleEvent(packet)
		case <-h.submitChan:
			h.onSilenceTimeout()
		}
	}
}

// State returns the current arbitration state.
func (h *ArbitrationHandler) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

func (h *ArbitrationHandler) HandleEvent(packet *core.EventPacket) error {
	switch event := packet.Event.(type) {
	case *control.ControlStartConversationEvent:
		h.onStartConversation()

	case *control.ControlStopConversationEvent:
		h.onStopConversation()

	case *control.ControlTypedInputEvent:
		h.onTypedInput(event.Text)

	case *stt.STTInterimOutputEvent:
		h.onInterimTranscript(event.Text)

	case *stt.STTFinalOutputEvent:
		// The device's own end-of-utterance marker updates the snapshot; the
		// silence debounce still decides when to submit.
		h.onInterimTranscript(event.Text)

	case *stt.STTErrorEvent:
		h.onRecognitionError(event.Code)

	case *chat.ChatReplyReadyEvent:
		h.onReplyReady(event.Text)

	case *chat.ChatReplyFailedEvent:
		h.onReplyFailed(event)

	case *synth.SynthSpeakingStartedEvent:
		// Confirmation from the device; Speaking was already entered when the
		// speak command went out.

	case *synth.SynthSpeakingEndedEvent:
		h.onSpeakingFinished("")

	case *synth.SynthErrorEvent:
		h.onSpeakingFinished(event.Code)

	default:
		h.SendPacket(packet)
	}
	return nil
}

func (h *ArbitrationHandler) onStartConversation() {
	h.mu.Lock()
	if h.state != StateIdle {
		h.mu.Unlock()
		return
	}
	h.active = true
	h.enterListeningLocked()
	h.mu.Unlock()
}

// onStopConversation is the hard cancel: stop recognition, stop synthesis,
// clear the debounce timer and transcript, and force Idle. All state is
// mutated under one lock acquisition so no partial cancel is observable.
func (h *ArbitrationHandler) onStopConversation() {
	h.mu.Lock()
	h.stopSilenceTimerLocked()
	h.transcript = ""
	h.active = false
	h.state = StateIdle
	h.mu.Unlock()

	h.sendTop(&stt.STTStopRecognitionEvent{Abort: true})
	h.sendNext(&synth.SynthCancelEvent{})
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateIdle)})
}

func (h *ArbitrationHandler) onTypedInput(text string) {
	text = strings.TrimSpace(text)

	h.mu.Lock()
	switch h.state {
	case StateListening:
		// Typed and spoken input are mutually exclusive per turn: cancel
		// recognition and discard the partial transcript.
		h.stopSilenceTimerLocked()
		h.transcript = ""
		h.state = StateIdle
		h.mu.Unlock()
		h.sendTop(&stt.STTStopRecognitionEvent{Abort: true})
		h.sendTop(&control.ControlStateChangedEvent{State: string(StateIdle)})
	case StateIdle:
		h.mu.Unlock()
	default:
		// A reply is in flight or being spoken; the UI disables input here.
		state := h.state
		h.mu.Unlock()
		h.Logger.Warnf("typed input ignored in state %s", state)
		return
	}

	if text == "" {
		return
	}

	h.mu.Lock()
	h.state = StateProcessing
	h.mu.Unlock()
	h.sendNext(&chat.ChatSubmitUtteranceEvent{SessionId: h.config.SessionId, Text: text})
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateProcessing)})
}

func (h *ArbitrationHandler) onInterimTranscript(text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StateListening {
		// Synthesis or processing started before the fragment landed; discard
		// it to avoid cross-talk submission.
		return
	}
	h.transcript = text
	h.resetSilenceTimerLocked()
}

// onSilenceTimeout fires when no transcript fragment arrived for the debounce
// window: the snapshot is the complete utterance.
func (h *ArbitrationHandler) onSilenceTimeout() {
	h.mu.Lock()
	if h.state != StateListening {
		h.mu.Unlock()
		return
	}
	utterance := strings.TrimSpace(h.transcript)
	if utterance == "" {
		h.mu.Unlock()
		return
	}
	h.transcript = ""
	h.stopSilenceTimerLocked()
	h.state = StateProcessing
	h.mu.Unlock()

	h.sendTop(&stt.STTStopRecognitionEvent{})
	h.sendNext(&chat.ChatSubmitUtteranceEvent{SessionId: h.config.SessionId, Text: utterance})
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateProcessing)})
}

func (h *ArbitrationHandler) onReplyReady(text string) {
	h.mu.Lock()
	if h.state != StateProcessing {
		// Cancelled while the call was in flight; the reply is dropped.
		h.mu.Unlock()
		return
	}
	if strings.TrimSpace(text) == "" {
		h.afterSpeakingLocked()
		return
	}
	// Recognition must be fully stopped before synthesis begins.
	h.stopSilenceTimerLocked()
	h.transcript = ""
	h.state = StateSpeaking
	h.mu.Unlock()

	h.sendTop(&stt.STTStopRecognitionEvent{Abort: true})
	h.sendNext(&synth.SynthSpeakEvent{Text: text})
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateSpeaking)})
}

func (h *ArbitrationHandler) onReplyFailed(event *chat.ChatReplyFailedEvent) {
	h.mu.Lock()
	if h.state != StateProcessing {
		h.mu.Unlock()
		return
	}
	h.state = StateIdle
	h.mu.Unlock()

	h.Logger.Warnf("reply failed (%s): %s", event.Kind, event.Message)
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateIdle)})
}

// onSpeakingFinished handles synthesis completion or failure. Either way the
// Speaking lifecycle has run its course, so listening may resume. A stale
// completion arriving after a cancel finds state != Speaking and is a no-op.
func (h *ArbitrationHandler) onSpeakingFinished(errCode string) {
	h.mu.Lock()
	if h.state != StateSpeaking {
		h.mu.Unlock()
		return
	}
	if errCode != "" {
		h.Logger.Warnf("synthesis ended with error: %s", errCode)
	}
	h.afterSpeakingLocked()
}

func (h *ArbitrationHandler) onRecognitionError(code string) {
	if code == "no-speech" {
		// Benign: the device heard nothing. Stay listening.
		return
	}

	h.mu.Lock()
	h.stopSilenceTimerLocked()
	h.transcript = ""
	wasListening := h.state == StateListening
	h.state = StateIdle
	h.mu.Unlock()

	h.sendTop(&core.WarningEvent{Message: recognitionErrorMessage(code)})
	if wasListening {
		h.sendTop(&control.ControlStateChangedEvent{State: string(StateIdle)})
	}
}

// afterSpeakingLocked leaves Speaking/Processing: back to Listening when the
// conversation is still active, otherwise Idle. Unlocks h.mu.
func (h *ArbitrationHandler) afterSpeakingLocked() {
	if h.active && h.config.AutoResumeListening {
		h.enterListeningLocked()
		h.mu.Unlock()
		return
	}
	h.state = StateIdle
	h.mu.Unlock()
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateIdle)})
}

// enterListeningLocked transitions to Listening and starts recognition.
// Caller holds h.mu.
func (h *ArbitrationHandler) enterListeningLocked() {
	h.state = StateListening
	h.transcript = ""
	h.sendTop(&stt.STTStartRecognitionEvent{Options: core.RecognitionOptions{
		Continuous:     true,
		Language:       h.config.Language,
		InterimResults: true,
	}})
	h.sendTop(&control.ControlStateChangedEvent{State: string(StateListening)})
}

func (h *ArbitrationHandler) resetSilenceTimerLocked() {
	if h.silenceTimer != nil {
		h.silenceTimer.Stop()
	}
	h.silenceTimer = time.AfterFunc(h.config.SilenceTimeout, func() {
		select {
		case h.submitChan <- struct{}{}:
		default:
		}
	})
}

func (h *ArbitrationHandler) stopSilenceTimerLocked() {
	if h.silenceTimer != nil {
		h.silenceTimer.Stop()
		h.silenceTimer = nil
	}
}

func (h *ArbitrationHandler) sendNext(event core.IEvent) {
	h.SendPacket(core.NewEventPacket(event, core.EventRelayDestinationNextService, "ArbitrationHandler"))
}

func (h *ArbitrationHandler) sendTop(event core.IEvent) {
	h.SendPacket(core.NewEventPacket(event, core.EventRelayDestinationTopService, "ArbitrationHandler"))
}

func recognitionErrorMessage(code string) string {
	switch code {
	case "not-allowed", "service-not-allowed":
		return "Microphone access was denied."
	case "audio-capture":
		return "No microphone was found."
	case "network":
		return "Network error during speech recognition."
	case "not-supported":
		return "Speech recognition is not supported in this browser."
	default:
		return "Speech recognition error. Please type instead."
	}
}

func (h *ArbitrationHandler) Cleanup() error {
	h.mu.Lock()
	h.stopSilenceTimerLocked()
	h.mu.Unlock()
	return h.BaseHandler.Cleanup()
}

func (h *ArbitrationHandler) Reset() error {
	h.mu.Lock()
	h.stopSilenceTimerLocked()
	h.transcript = ""
	h.active = false
	h.state = StateIdle
	h.mu.Unlock()
	return h.BaseHandler.Reset()
}
