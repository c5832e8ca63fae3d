package arbitration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhashakit/core"
	"bhashakit/events/chat"
	"bhashakit/events/control"
	"bhashakit/events/stt"
	"bhashakit/events/synth"
)

type harness struct {
	h     *ArbitrationHandler
	input chan *core.EventPacket
	next  chan *core.EventPacket
	top   chan *core.EventPacket
}

func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	cfg.SessionId = "test-session"
	h := NewArbitrationHandler(cfg, core.NewDevelopmentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	input := make(chan *core.EventPacket, 100)
	next := make(chan *core.EventPacket, 100)
	top := make(chan *core.EventPacket, 100)
	require.NoError(t, h.Initialize(input, next, top, ctx))
	require.NoError(t, h.Start())

	return &harness{h: h, input: input, next: next, top: top}
}

func (ha *harness) send(event core.IEvent) {
	ha.input <- core.NewEventPacket(event, core.EventRelayDestinationNextService, "test")
}

// awaitEvent reads packets from ch until one carries an event of type T.
func awaitEvent[T core.IEvent](t *testing.T, ch chan *core.EventPacket) T {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case packet := <-ch:
			if ev, ok := packet.Event.(T); ok {
				return ev
			}
		case <-deadline:
			var zero T
			t.Fatalf("timed out waiting for %T", zero)
			return zero
		}
	}
}

func waitState(t *testing.T, h *ArbitrationHandler, want State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.State() == want },
		2*time.Second, 5*time.Millisecond, "expected state %s", want)
}

// drain empties both output channels.
func (ha *harness) drain() {
	for {
		select {
		case <-ha.next:
		case <-ha.top:
		default:
			return
		}
	}
}

func TestStartConversationEntersListening(t *testing.T) {
	ha := newHarness(t, DefaultConfig())

	ha.send(&control.ControlStartConversationEvent{})

	start := awaitEvent[*stt.STTStartRecognitionEvent](t, ha.top)
	assert.True(t, start.Options.Continuous)
	assert.True(t, start.Options.InterimResults)
	waitState(t, ha.h, StateListening)
}

func TestSilenceTimeoutSubmitsLatestSnapshot(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 60 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)

	ha.send(&stt.STTInterimOutputEvent{Text: "how do"})
	time.Sleep(20 * time.Millisecond)
	ha.send(&stt.STTInterimOutputEvent{Text: "how do I say hello"})

	submit := awaitEvent[*chat.ChatSubmitUtteranceEvent](t, ha.next)
	assert.Equal(t, "how do I say hello", submit.Text)
	assert.Equal(t, "test-session", submit.SessionId)

	// Recognition is stopped when the utterance is submitted.
	awaitEvent[*stt.STTStopRecognitionEvent](t, ha.top)
	waitState(t, ha.h, StateProcessing)
}

func TestEmptyTranscriptNeverSubmits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 30 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)

	ha.send(&stt.STTInterimOutputEvent{Text: "   "})
	time.Sleep(100 * time.Millisecond)

	assert.Equal(t, StateListening, ha.h.State())
	select {
	case packet := <-ha.next:
		if _, ok := packet.Event.(*chat.ChatSubmitUtteranceEvent); ok {
			t.Fatal("blank transcript must not be submitted")
		}
	default:
	}
}

func TestReplyStopsRecognitionBeforeSynthesis(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 30 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.send(&stt.STTInterimOutputEvent{Text: "hello"})
	waitState(t, ha.h, StateProcessing)
	ha.drain()

	ha.send(&chat.ChatReplyReadyEvent{Text: "Namaskara!"})

	// The abort goes out before the speak command is acted on.
	stop := awaitEvent[*stt.STTStopRecognitionEvent](t, ha.top)
	assert.True(t, stop.Abort)
	speak := awaitEvent[*synth.SynthSpeakEvent](t, ha.next)
	assert.Equal(t, "Namaskara!", speak.Text)
	waitState(t, ha.h, StateSpeaking)
}

func TestSpeakingEndedResumesListening(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 30 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.send(&stt.STTInterimOutputEvent{Text: "hello"})
	waitState(t, ha.h, StateProcessing)
	ha.send(&chat.ChatReplyReadyEvent{Text: "hi"})
	waitState(t, ha.h, StateSpeaking)
	ha.drain()

	ha.send(&synth.SynthSpeakingEndedEvent{})

	waitState(t, ha.h, StateListening)
	awaitEvent[*stt.STTStartRecognitionEvent](t, ha.top)
}

func TestCancelDuringSpeakingIsAtomic(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 30 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.send(&stt.STTInterimOutputEvent{Text: "hello"})
	waitState(t, ha.h, StateProcessing)
	ha.send(&chat.ChatReplyReadyEvent{Text: "hi"})
	waitState(t, ha.h, StateSpeaking)
	ha.drain()

	ha.send(&control.ControlStopConversationEvent{})

	awaitEvent[*synth.SynthCancelEvent](t, ha.next)
	stop := awaitEvent[*stt.STTStopRecognitionEvent](t, ha.top)
	assert.True(t, stop.Abort)
	waitState(t, ha.h, StateIdle)

	// A synthesis completion racing the cancel must have no observable effect.
	ha.drain()
	ha.send(&synth.SynthSpeakingEndedEvent{})
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, StateIdle, ha.h.State())
	select {
	case packet := <-ha.top:
		t.Fatalf("stale completion produced event %T", packet.Event)
	case packet := <-ha.next:
		t.Fatalf("stale completion produced event %T", packet.Event)
	default:
	}
}

func TestCancelClearsPendingDebounce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 50 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.send(&stt.STTInterimOutputEvent{Text: "half an utter"})
	ha.send(&control.ControlStopConversationEvent{})
	waitState(t, ha.h, StateIdle)
	ha.drain()

	// If the debounce survived the cancel it would fire within this window.
	time.Sleep(120 * time.Millisecond)
	select {
	case packet := <-ha.next:
		if _, ok := packet.Event.(*chat.ChatSubmitUtteranceEvent); ok {
			t.Fatal("cancelled transcript was submitted")
		}
	default:
	}
	assert.Equal(t, StateIdle, ha.h.State())
}

func TestTypedInputWhileListeningForcesIdleThenSubmits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = time.Minute // never fires in this test
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.send(&stt.STTInterimOutputEvent{Text: "spoken fragment"})

	ha.send(&control.ControlTypedInputEvent{Text: "typed message"})

	stop := awaitEvent[*stt.STTStopRecognitionEvent](t, ha.top)
	assert.True(t, stop.Abort)
	submit := awaitEvent[*chat.ChatSubmitUtteranceEvent](t, ha.next)
	assert.Equal(t, "typed message", submit.Text, "partial transcript is discarded, typed text wins")
	waitState(t, ha.h, StateProcessing)
}

func TestReplyFailureReturnsToIdle(t *testing.T) {
	ha := newHarness(t, DefaultConfig())

	ha.send(&control.ControlTypedInputEvent{Text: "hello"})
	waitState(t, ha.h, StateProcessing)

	ha.send(&chat.ChatReplyFailedEvent{Kind: "rate_limited", Message: "API request limit reached. Please try again later."})
	waitState(t, ha.h, StateIdle)
}

func TestRecognitionErrorMapsToAdvisory(t *testing.T) {
	ha := newHarness(t, DefaultConfig())

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.drain()

	ha.send(&stt.STTErrorEvent{Code: "not-allowed"})

	warning := awaitEvent[*core.WarningEvent](t, ha.top)
	assert.Equal(t, "Microphone access was denied.", warning.Message)
	waitState(t, ha.h, StateIdle)
}

func TestNoSpeechErrorKeepsListening(t *testing.T) {
	ha := newHarness(t, DefaultConfig())

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)

	ha.send(&stt.STTErrorEvent{Code: "no-speech"})
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateListening, ha.h.State())
}

func TestEmptyReplyWalksBackToListening(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SilenceTimeout = 30 * time.Millisecond
	ha := newHarness(t, cfg)

	ha.send(&control.ControlStartConversationEvent{})
	waitState(t, ha.h, StateListening)
	ha.send(&stt.STTInterimOutputEvent{Text: "hello"})
	waitState(t, ha.h, StateProcessing)

	ha.send(&chat.ChatReplyReadyEvent{Text: "   "})
	waitState(t, ha.h, StateListening)
}
