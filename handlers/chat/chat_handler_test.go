package chat

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhashakit/core"
	chatevents "bhashakit/events/chat"
)

type fakeManager struct {
	mu      sync.Mutex
	replyFn func(sessionID, text string) (string, error)
	calls   []string
}

func (f *fakeManager) SubmitUtterance(_ context.Context, sessionID, text string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, text)
	f.mu.Unlock()
	return f.replyFn(sessionID, text)
}

type fakeChatService struct{}

func (s *fakeChatService) Init(_ context.Context) error { return nil }
func (s *fakeChatService) Cleanup() error               { return nil }
func (s *fakeChatService) Reset() error                 { return nil }
func (s *fakeChatService) GenerateReply(_ context.Context, _ []core.ChatMessage, _ string) (string, error) {
	return "", nil
}

type chatHarness struct {
	h     *ChatHandler
	input chan *core.EventPacket
	next  chan *core.EventPacket
	top   chan *core.EventPacket
}

func newChatHarness(t *testing.T, manager SessionManager) *chatHarness {
	t.Helper()
	h := NewChatHandler(manager, &fakeChatService{}, nil, core.NewDevelopmentLogger())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	input := make(chan *core.EventPacket, 10)
	next := make(chan *core.EventPacket, 10)
	top := make(chan *core.EventPacket, 10)
	require.NoError(t, h.Initialize(input, next, top, ctx))
	require.NoError(t, h.Start())
	return &chatHarness{h: h, input: input, next: next, top: top}
}

func (ha *chatHarness) submit(sessionID, text string) {
	ha.input <- core.NewEventPacket(
		&chatevents.ChatSubmitUtteranceEvent{SessionId: sessionID, Text: text},
		core.EventRelayDestinationNextService, "test")
}

func awaitPacket(t *testing.T, ch chan *core.EventPacket) *core.EventPacket {
	t.Helper()
	select {
	case packet := <-ch:
		return packet
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for packet")
		return nil
	}
}

func TestSubmitPublishesReply(t *testing.T) {
	manager := &fakeManager{replyFn: func(_, text string) (string, error) {
		return "Namaskara! That means hello.", nil
	}}
	ha := newChatHarness(t, manager)

	ha.submit("s1", "how do I say hello")

	packet := awaitPacket(t, ha.top)
	reply, ok := packet.Event.(*chatevents.ChatReplyReadyEvent)
	require.True(t, ok, "expected reply event, got %T", packet.Event)
	assert.Equal(t, "Namaskara! That means hello.", reply.Text)
	assert.Equal(t, []string{"how do I say hello"}, manager.calls)
}

func TestContentBlockedSurfacesAsReplyText(t *testing.T) {
	manager := &fakeManager{replyFn: func(_, _ string) (string, error) {
		return "", core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", nil)
	}}
	ha := newChatHarness(t, manager)

	ha.submit("s1", "something spicy")

	packet := awaitPacket(t, ha.top)
	reply, ok := packet.Event.(*chatevents.ChatReplyReadyEvent)
	require.True(t, ok, "blocked response should arrive as a reply, got %T", packet.Event)
	assert.Equal(t, "My response was blocked due to safety settings.", reply.Text)
}

func TestFailurePublishesClassifiedError(t *testing.T) {
	manager := &fakeManager{replyFn: func(_, _ string) (string, error) {
		return "", core.NewChatError(core.ErrKindRateLimited, "API request limit reached. Please try again later.", nil)
	}}
	ha := newChatHarness(t, manager)

	ha.submit("s1", "hello")

	packet := awaitPacket(t, ha.top)
	failed, ok := packet.Event.(*chatevents.ChatReplyFailedEvent)
	require.True(t, ok, "expected failure event, got %T", packet.Event)
	assert.Equal(t, "rate_limited", failed.Kind)
	assert.Equal(t, "API request limit reached. Please try again later.", failed.Message)
}

func TestUnrelatedEventsAreForwarded(t *testing.T) {
	manager := &fakeManager{replyFn: func(_, _ string) (string, error) { return "", nil }}
	ha := newChatHarness(t, manager)

	ha.input <- core.NewEventPacket(&core.WarningEvent{Message: "heads up"},
		core.EventRelayDestinationNextService, "test")

	packet := awaitPacket(t, ha.next)
	warning, ok := packet.Event.(*core.WarningEvent)
	require.True(t, ok)
	assert.Equal(t, "heads up", warning.Message)
}

func TestSlowExchangeDoesNotBlockHandler(t *testing.T) {
	release := make(chan struct{})
	manager := &fakeManager{replyFn: func(_, text string) (string, error) {
		if text == "slow" {
			<-release
			return "finally", nil
		}
		return "quick", nil
	}}
	ha := newChatHarness(t, manager)

	ha.submit("s1", "slow")
	ha.input <- core.NewEventPacket(&core.WarningEvent{Message: "still alive"},
		core.EventRelayDestinationNextService, "test")

	// The forward happens while the slow exchange is still in flight.
	packet := awaitPacket(t, ha.next)
	_, ok := packet.Event.(*core.WarningEvent)
	require.True(t, ok)

	close(release)
	reply := awaitPacket(t, ha.top)
	assert.IsType(t, &chatevents.ChatReplyReadyEvent{}, reply.Event)
}
