package factories

import (
	"bhashakit/core"
	arbitrationhandler "bhashakit/handlers/arbitration"
	chathandler "bhashakit/handlers/chat"
	recognitionhandler "bhashakit/handlers/recognition"
	synthesishandler "bhashakit/handlers/synthesis"
	transporthandler "bhashakit/handlers/transport"
	"bhashakit/runner"
	"bhashakit/session"
	wstransport "bhashakit/transports/websocket"
)

// BuildPipeline assembles the handler chain for one browser connection.
//
// Chain order: transport -> recognition -> arbitration -> chat -> synthesis.
// Device events enter at the transport; commands the arbitration handler
// sends to the top are echoed down through the transport so the recognition
// handler sees them, and replies published by the chat handler travel the
// same way back to arbitration.
//
// The transport doubles as the recognition and synthesis device: both sides
// of the voice loop live on the same browser connection.
func BuildPipeline(
	settings SettingsConfig,
	transport *wstransport.Service,
	manager *session.Manager,
	chatService core.IChatService,
	backupServices []core.IService,
	sessionID string,
	logger *core.Logger,
) *runner.Runner {
	handlers := []core.IHandler{
		transporthandler.NewTransportHandler(transport, logger),
		recognitionhandler.NewRecognitionHandler(transport, logger),
		arbitrationhandler.NewArbitrationHandler(settings.ArbitrationConfig(sessionID), logger),
		chathandler.NewChatHandler(manager, chatService, backupServices, logger),
		synthesishandler.NewSynthesisHandler(transport, settings.SynthesisConfig(), logger),
	}
	return runner.NewRunner(handlers, logger)
}
