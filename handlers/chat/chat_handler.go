package chat

import (
	"context"

	"bhashakit/core"
	chatevents "bhashakit/events/chat"
)

// ChatHandler bridges the pipeline to the session manager. It consumes
// utterance submissions, runs the upstream exchange asynchronously so the
// handler stays responsive to cancellation traffic, and publishes the outcome
// to the top of the pipeline where the arbitration handler picks it up.
type ChatHandler struct {
	core.BaseHandler
	manager   SessionManager
	resultOut chan submitResult
}

// SessionManager is the slice of the session manager the handler needs.
type SessionManager interface {
	SubmitUtterance(ctx context.Context, sessionID, text string) (string, error)
}

type submitResult struct {
	sessionID string
	reply     string
	err       error
}

// NewChatHandler creates a chat handler. The service is the upstream chat
// backend the manager talks to; it is owned here so pipeline Init and Cleanup
// reach it.
func NewChatHandler(manager SessionManager, service core.IChatService, backupServices []core.IService, logger *core.Logger) *ChatHandler {
	return &ChatHandler{
		BaseHandler: *core.NewBaseHandler(service, backupServices, logger, nil),
		manager:     manager,
	}
}

func (h *ChatHandler) Initialize(
	inputChan <-chan *core.EventPacket,
	outputNextChan chan<- *core.EventPacket,
	outputTopChan chan<- *core.EventPacket,
	ctx context.Context,
) error {
	h.resultOut = make(chan submitResult, 10)
	return h.BaseHandler.Initialize(inputChan, outputNextChan, outputTopChan, ctx)
}

func (h *ChatHandler) Start() error {
	go h.eventLoop()
	return nil
}

func (h *ChatHandler) eventLoop() {
	for {
		select {
		case <-h.Ctx.Done():
			return
		case packet := <-h.InputChan:
			h.HandleEvent(packet)
		case result := <-h.resultOut:
			h.publishResult(result)
		}
	}
}

func (h *ChatHandler) HandleEvent(packet *core.EventPacket) error {
	switch event := packet.Event.(type) {
	case *chatevents.ChatSubmitUtteranceEvent:
		// The upstream call can take seconds; run it off the event loop so a
		// cancel or a busy rejection for another session is never blocked.
		go func(sessionID, text string) {
			reply, err := h.manager.SubmitUtterance(h.Ctx, sessionID, text)
			select {
			case h.resultOut <- submitResult{sessionID: sessionID, reply: reply, err: err}:
			case <-h.Ctx.Done():
			}
		}(event.SessionId, event.Text)

	default:
		h.SendPacket(packet)
	}
	return nil
}

func (h *ChatHandler) publishResult(result submitResult) {
	if result.err != nil {
		kind := core.ErrKindOf(result.err)
		if kind == core.ErrKindContentBlocked {
			// A safety block is surfaced as a normal assistant reply so the
			// user hears and sees the explanation.
			h.Logger.Warnf("reply blocked for session %s: %v", result.sessionID, result.err)
			h.sendTop(&chatevents.ChatReplyReadyEvent{Text: core.UserMessage(result.err)})
			return
		}
		h.Logger.Warnf("chat exchange failed for session %s: %v", result.sessionID, result.err)
		h.sendTop(&chatevents.ChatReplyFailedEvent{
			Kind:    kind.String(),
			Message: core.UserMessage(result.err),
		})
		return
	}
	h.sendTop(&chatevents.ChatReplyReadyEvent{Text: result.reply})
}

func (h *ChatHandler) sendTop(event core.IEvent) {
	h.SendPacket(core.NewEventPacket(event, core.EventRelayDestinationTopService, "ChatHandler"))
}
