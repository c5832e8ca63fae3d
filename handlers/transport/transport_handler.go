package transport

import (
	"bhashakit/core"
	"bhashakit/events/chat"
	"bhashakit/events/control"
	"bhashakit/events/synth"
)

// DeviceTransport is the connection to the browser: inbound device events are
// read through StartReceiving, and UI mirror messages go out through the Send
// methods. The recognition and synthesis device interfaces live on the same
// connection but are driven by their own handlers further down the chain.
type DeviceTransport interface {
	core.IService
	StartReceiving(outputChan chan<- core.IEvent, errorChan chan<- error)
	SendState(state string) error
	SendReply(text string) error
	SendWarning(message string) error
	SendVoiceAdvisory(language string) error
	SendError(kind, message string) error
}

// TransportHandler sits at the top of the chain. Browser events enter the
// pipeline here, and UI-facing events surfaced to the top are mirrored to the
// browser before continuing down the chain where applicable.
type TransportHandler struct {
	core.BaseHandler
	transport DeviceTransport
	eventIn   chan core.IEvent
	errorIn   chan error
}

func NewTransportHandler(transport DeviceTransport, logger *core.Logger) *TransportHandler {
	return &TransportHandler{
		BaseHandler: *core.NewBaseHandler(transport, nil, logger, nil),
		transport:   transport,
	}
}

func (h *TransportHandler) Start() error {
	h.eventIn = make(chan core.IEvent, 100)
	h.errorIn = make(chan error, 1)
	go h.transport.StartReceiving(h.eventIn, h.errorIn)
	go h.eventLoop()
	return nil
}

func (h *TransportHandler) eventLoop() {
	for {
		select {
		case <-h.Ctx.Done():
			return
		case event := <-h.eventIn:
			h.SendPacket(core.NewEventPacket(event, core.EventRelayDestinationNextService, "TransportHandler"))
		case err := <-h.errorIn:
			// The browser went away; the session cannot continue.
			h.Logger.Infof("connection closed: %v", err)
			h.SendPacket(core.NewEventPacket(&core.EndSessionEvent{Reason: "connection closed"},
				core.EventRelayDestinationNextService, "TransportHandler"))
			return
		case packet := <-h.InputChan:
			h.HandleEvent(packet)
		}
	}
}

func (h *TransportHandler) HandleEvent(packet *core.EventPacket) error {
	switch event := packet.Event.(type) {
	case *control.ControlStateChangedEvent:
		// UI-only mirror; nothing downstream consumes it.
		if err := h.transport.SendState(event.State); err != nil {
			h.Logger.Warnf("failed to mirror state: %v", err)
		}
		return nil

	case *chat.ChatReplyReadyEvent:
		// The display text goes to the UI unstripped; the event continues to
		// the arbitration handler, which owns the speaking transition.
		if err := h.transport.SendReply(event.Text); err != nil {
			h.Logger.Warnf("failed to mirror reply: %v", err)
		}

	case *chat.ChatReplyFailedEvent:
		if err := h.transport.SendError(event.Kind, event.Message); err != nil {
			h.Logger.Warnf("failed to mirror error: %v", err)
		}

	case *core.WarningEvent:
		if err := h.transport.SendWarning(event.Message); err != nil {
			h.Logger.Warnf("failed to mirror warning: %v", err)
		}
		return nil

	case *synth.SynthVoiceAdvisoryEvent:
		if err := h.transport.SendVoiceAdvisory(event.Language); err != nil {
			h.Logger.Warnf("failed to mirror voice advisory: %v", err)
		}
		return nil
	}

	h.SendPacket(packet)
	return nil
}
