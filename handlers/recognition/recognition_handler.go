package recognition

import (
	"bhashakit/core"
	"bhashakit/events/stt"
)

// RecognitionHandler drives the speech-recognition device. Start and stop
// commands from the arbitration handler are consumed here and turned into
// device calls; transcript and error events coming up from the device pass
// straight through on their way to arbitration.
type RecognitionHandler struct {
	core.BaseHandler
	recognizer core.ISpeechRecognizer
}

// The device lives behind the transport, so there is no IService here;
// BaseHandler tolerates a nil service.
func NewRecognitionHandler(recognizer core.ISpeechRecognizer, logger *core.Logger) *RecognitionHandler {
	return &RecognitionHandler{
		BaseHandler: *core.NewBaseHandler(nil, nil, logger, nil),
		recognizer:  recognizer,
	}
}

func (h *RecognitionHandler) Start() error {
	go h.eventLoop()
	return nil
}

func (h *RecognitionHandler) eventLoop() {
	for {
		select {
		case <-h.Ctx.Done():
			return
		case packet := <-h.InputChan:
			h.HandleEvent(packet)
		}
	}
}

func (h *RecognitionHandler) HandleEvent(packet *core.EventPacket) error {
	switch event := packet.Event.(type) {
	case *stt.STTStartRecognitionEvent:
		if err := h.recognizer.StartRecognition(event.Options); err != nil {
			h.Logger.Warnf("failed to start recognition: %v", err)
			h.SendPacket(core.NewEventPacket(&stt.STTErrorEvent{Code: "not-supported"},
				core.EventRelayDestinationNextService, "RecognitionHandler"))
			return nil
		}
		h.SendPacket(core.NewEventPacket(&stt.STTListeningStartedEvent{},
			core.EventRelayDestinationTopService, "RecognitionHandler"))

	case *stt.STTStopRecognitionEvent:
		if err := h.recognizer.StopRecognition(event.Abort); err != nil {
			h.Logger.Warnf("failed to stop recognition: %v", err)
			return nil
		}
		h.SendPacket(core.NewEventPacket(&stt.STTListeningStoppedEvent{},
			core.EventRelayDestinationTopService, "RecognitionHandler"))

	default:
		h.SendPacket(packet)
	}
	return nil
}
