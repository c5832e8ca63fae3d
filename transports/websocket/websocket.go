package websocket

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"

	"bhashakit/core"
	"bhashakit/events/control"
	"bhashakit/events/stt"
	"bhashakit/events/synth"
	"bhashakit/protocol"
)

var errNotConnected = errors.New("websocket: not connected")

// Service wraps one browser connection. The browser owns the actual
// microphone and speakers; this side drives them by sending protocol
// envelopes, so the service doubles as the pipeline's recognition and
// synthesis device.
type Service struct {
	conn   *websocket.Conn
	logger *core.Logger

	mu sync.Mutex // protects writes and the voice cache

	voices []core.Voice
}

var (
	_ core.ISpeechRecognizer  = (*Service)(nil)
	_ core.ISpeechSynthesizer = (*Service)(nil)
)

// NewService creates a Service over an already-upgraded connection.
func NewService(conn *websocket.Conn, logger *core.Logger) *Service {
	return &Service{conn: conn, logger: logger}
}

func (s *Service) Init(_ context.Context) error {
	if s.conn == nil {
		return errNotConnected
	}
	return nil
}

func (s *Service) Cleanup() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Service) Reset() error { return nil }

// --- device command surface ---

func (s *Service) StartRecognition(opts core.RecognitionOptions) error {
	return s.send(protocol.MsgRecognitionStart, protocol.RecognitionStartPayload{Options: opts})
}

func (s *Service) StopRecognition(abort bool) error {
	return s.send(protocol.MsgRecognitionStop, protocol.RecognitionStopPayload{Abort: abort})
}

func (s *Service) Speak(req core.SpeakRequest) error {
	return s.send(protocol.MsgSpeak, protocol.SpeakPayload{Request: req})
}

func (s *Service) CancelSpeech() error {
	return s.send(protocol.MsgSpeechCancel, nil)
}

// Voices returns the synthesis voices the browser last reported. Empty until
// the browser's voice list populates.
func (s *Service) Voices() []core.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Voice(nil), s.voices...)
}

// --- UI mirror surface ---

func (s *Service) SendState(state string) error {
	return s.send(protocol.MsgState, protocol.StatePayload{State: state})
}

func (s *Service) SendReply(text string) error {
	return s.send(protocol.MsgReply, protocol.ReplyPayload{Text: text})
}

func (s *Service) SendWarning(message string) error {
	return s.send(protocol.MsgWarning, protocol.WarningPayload{Message: message})
}

func (s *Service) SendVoiceAdvisory(language string) error {
	return s.send(protocol.MsgVoiceAdvisory, protocol.VoiceAdvisoryPayload{Language: language})
}

func (s *Service) SendError(kind, message string) error {
	return s.send(protocol.MsgError, protocol.ErrorPayload{Kind: kind, Message: message})
}

func (s *Service) send(msgType protocol.MessageType, payload interface{}) error {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return errNotConnected
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// StartReceiving reads envelopes from the browser until the connection drops,
// translating each into a pipeline event. Runs on the caller's goroutine.
func (s *Service) StartReceiving(outputChan chan<- core.IEvent, errorChan chan<- error) {
	if s.conn == nil {
		errorChan <- errNotConnected
		return
	}
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			errorChan <- err
			return
		}
		event, err := s.decode(msg)
		if err != nil {
			s.logger.Warnf("dropping malformed message: %v", err)
			continue
		}
		if event != nil {
			outputChan <- event
		}
	}
}

func (s *Service) decode(msg []byte) (core.IEvent, error) {
	msgType, raw, err := protocol.Unmarshal(msg)
	if err != nil {
		return nil, err
	}
	switch msgType {
	case protocol.MsgStartConversation:
		return &control.ControlStartConversationEvent{}, nil

	case protocol.MsgStopConversation:
		return &control.ControlStopConversationEvent{}, nil

	case protocol.MsgTypedInput:
		payload, err := protocol.UnmarshalPayload[protocol.TypedInputPayload](raw)
		if err != nil {
			return nil, err
		}
		return &control.ControlTypedInputEvent{Text: payload.Text}, nil

	case protocol.MsgTranscript:
		payload, err := protocol.UnmarshalPayload[protocol.TranscriptPayload](raw)
		if err != nil {
			return nil, err
		}
		if payload.Final {
			return &stt.STTFinalOutputEvent{Text: payload.Text}, nil
		}
		return &stt.STTInterimOutputEvent{Text: payload.Text}, nil

	case protocol.MsgRecognitionError:
		payload, err := protocol.UnmarshalPayload[protocol.RecognitionErrorPayload](raw)
		if err != nil {
			return nil, err
		}
		return &stt.STTErrorEvent{Code: payload.Code}, nil

	case protocol.MsgSpeakingStarted:
		return &synth.SynthSpeakingStartedEvent{}, nil

	case protocol.MsgSpeakingEnded:
		return &synth.SynthSpeakingEndedEvent{}, nil

	case protocol.MsgSpeechError:
		payload, err := protocol.UnmarshalPayload[protocol.SpeechErrorPayload](raw)
		if err != nil {
			return nil, err
		}
		return &synth.SynthErrorEvent{Code: payload.Code}, nil

	case protocol.MsgVoices:
		payload, err := protocol.UnmarshalPayload[protocol.VoicesPayload](raw)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.voices = payload.Voices
		s.mu.Unlock()
		return nil, nil

	default:
		s.logger.Debugf("ignoring unknown message type %q", msgType)
		return nil, nil
	}
}
