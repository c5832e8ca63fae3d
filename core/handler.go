package core

import (
	"context"
	"errors"
)

type IService interface {
	Init(
		ctx context.Context,
	) error
	Cleanup() error
	Reset() error
}

type IHandler interface {
	Initialize(
		InputChan <-chan *EventPacket,
		outputChan chan<- *EventPacket,
		OutputTopChan chan<- *EventPacket,
		ctx context.Context,
	) error // Initializes the handler with its pipeline channels.
	Start() error // Starts the handler's main logic. This is where the handler begins processing events.
	HandleEvent(packet *EventPacket) error

	Cleanup() error // Cleans up resources used by the handler.
	Reset() error   // Resets the handler to its initial state.
}

type BaseHandler struct {
	Service               IService
	BackupServices        []IService
	Logger                *Logger
	Ctx                   context.Context
	InputChan             <-chan *EventPacket
	outputNextChan        chan<- *EventPacket
	outputTopChan         chan<- *EventPacket
	FatalServiceErrorChan chan error
	HandlerErrorChan      chan error
}

func (h *BaseHandler) Initialize(
	InputChan <-chan *EventPacket,
	OutputNextChan chan<- *EventPacket,
	OutputTopChan chan<- *EventPacket,
	ctx context.Context,
) error {
	h.InputChan = InputChan
	h.outputNextChan = OutputNextChan
	h.outputTopChan = OutputTopChan
	h.FatalServiceErrorChan = make(chan error)
	h.Ctx = ctx
	go h.fatalErrorHandlerLoop() // Start the fatal error handler loop in a separate goroutine.
	if h.Service == nil {
		return nil
	}
	return h.Service.Init(ctx)
}

func (h *BaseHandler) Cleanup() error {
	if h.Service == nil {
		return nil
	}
	return h.Service.Cleanup()
}

func (h *BaseHandler) Reset() error {
	if h.Service == nil {
		return nil
	}
	return h.Service.Reset()
}

func (h *BaseHandler) SwitchToBackupService() error {
	if len(h.BackupServices) == 0 {
		return errors.New("no backup services available")
	}
	// Switch to the next backup service in the list.
	h.Service = h.BackupServices[0]
	// Re-initialize the new service with the existing context.
	if err := h.Service.Init(h.Ctx); err != nil {
		return err
	}
	h.BackupServices = h.BackupServices[1:] // Remove the switched service from the backup list.
	return nil
}

func (h *BaseHandler) SendPacket(packet *EventPacket) {
	switch packet.Destination {
	case EventRelayDestinationNextService:
		h.outputNextChan <- packet
	case EventRelayDestinationTopService:
		h.outputTopChan <- packet
	default:
		// Default to sending to the next handler if destination is unrecognized.
		h.outputNextChan <- packet
	}
}

func (h *BaseHandler) HandleError(err error) {
	h.FatalServiceErrorChan <- err
}

func (h *BaseHandler) fatalErrorHandlerLoop() {
	for {
		select {
		case err := <-h.FatalServiceErrorChan:
			h.Logger.Errorf("fatal service error: %v", err)
			if switchErr := h.SwitchToBackupService(); switchErr != nil {
				h.Logger.Errorf("failed to switch to backup service: %v", switchErr)
				h.SendPacket(
					NewEventPacket(&CriticalErrorEvent{Error: err.Error()}, EventRelayDestinationTopService, "BaseHandler"),
				)
				return
			}
			h.Logger.Warn("switched to backup service")
		case <-h.Ctx.Done():
			return
		}
	}
}

func NewBaseHandler(service IService, backupServices []IService, logger *Logger, ctx context.Context) *BaseHandler {
	return &BaseHandler{
		Service:        service,
		BackupServices: backupServices,
		Logger:         logger,
		Ctx:            ctx,
	}
}
