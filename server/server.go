package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"bhashakit/core"
	"bhashakit/factories"
	"bhashakit/runner"
	googletts "bhashakit/services/google/tts"
	"bhashakit/session"
	wstransport "bhashakit/transports/websocket"
)

// Server hosts the JSON chat surface, the TTS proxy and the WebSocket
// endpoint that spawns a voice pipeline per connection. The session manager
// is shared, so a browser can continue a /chat conversation over /ws and
// vice versa by presenting the same session ID.
type Server struct {
	settings factories.SettingsConfig
	manager  *session.Manager
	chat     core.IChatService
	tts      *googletts.GoogleTTSService
	logger   *core.Logger
	upgrader websocket.Upgrader
}

func New(
	settings factories.SettingsConfig,
	manager *session.Manager,
	chat core.IChatService,
	tts *googletts.GoogleTTSService,
	logger *core.Logger,
) *Server {
	return &Server{
		settings: settings,
		manager:  manager,
		chat:     chat,
		tts:      tts,
		logger:   logger.With(map[string]interface{}{"component": "server"}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The browser UI may be served from a different origin in dev.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Routes returns the HTTP mux with all endpoints registered.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/tts", s.handleTTS)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

type chatRequest struct {
	SessionID string `json:"sessionId"`
	Message   string `json:"message"`
}

type chatResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"sessionId"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, map[string]string{
			"message": "API is running. Use POST to chat.",
		})
	case http.MethodPost:
		s.handleChatPost(w, r)
	default:
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	}
}

func (s *Server) handleChatPost(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.SessionID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Session ID is required"})
		return
	}

	reply, err := s.manager.SubmitUtterance(r.Context(), req.SessionID, req.Message)
	if err != nil {
		kind := core.ErrKindOf(err)
		if kind == core.ErrKindContentBlocked {
			// The block is a conversational outcome, not a server failure.
			s.writeJSON(w, http.StatusOK, chatResponse{
				Response:  core.UserMessage(err),
				SessionID: req.SessionID,
			})
			return
		}
		s.writeJSON(w, statusForKind(kind), errorResponse{Error: core.UserMessage(err)})
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{Response: reply, SessionID: req.SessionID})
}

func statusForKind(kind core.ErrKind) int {
	switch kind {
	case core.ErrKindValidation:
		return http.StatusBadRequest
	case core.ErrKindRateLimited:
		return http.StatusTooManyRequests
	case core.ErrKindBusy:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

type ttsRequest struct {
	Text         string `json:"text"`
	LanguageCode string `json:"languageCode,omitempty"`
	VoiceName    string `json:"voiceName,omitempty"`
	// Format selects the output encoding: mp3 (default), wav, pcm,
	// ulaw/pcmu or alaw/pcma. The G.711 forms suit telephony playback.
	Format string `json:"format,omitempty"`
}

type ttsResponse struct {
	AudioBase64     string  `json:"audioBase64"`
	Format          string  `json:"format"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
}

func parseAudioFormat(name string) (core.AudioEncodingFormat, string, error) {
	switch strings.ToLower(name) {
	case "", "mp3":
		return core.MP3, "mp3", nil
	case "wav":
		return core.WAV, "wav", nil
	case "pcm", "linear16":
		return core.PCM, "pcm", nil
	case "ulaw", "pcmu", "mulaw":
		return core.ULAW, "ulaw", nil
	case "alaw", "pcma":
		return core.ALAW, "alaw", nil
	default:
		return 0, "", fmt.Errorf("unsupported audio format %q", name)
	}
}

func (s *Server) handleTTS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}
	if s.tts == nil {
		s.writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "Text-to-speech is not configured"})
		return
	}

	var req ttsRequest
	if err := s.readJSON(r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if req.Text == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Text is required"})
		return
	}
	format, formatName, err := parseAudioFormat(req.Format)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Unsupported audio format"})
		return
	}

	result, err := s.tts.Synthesize(r.Context(), googletts.SynthesizeRequest{
		Text:         req.Text,
		LanguageCode: req.LanguageCode,
		VoiceName:    req.VoiceName,
		Format:       format,
	})
	if err != nil {
		kind := core.ErrKindOf(err)
		if kind == core.ErrKindRateLimited {
			s.writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: core.UserMessage(err)})
			return
		}
		s.logger.Warnf("tts synthesis failed: %v", err)
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Speech synthesis failed"})
		return
	}

	s.writeJSON(w, http.StatusOK, ttsResponse{
		AudioBase64:     result.AudioBase64,
		Format:          formatName,
		DurationSeconds: result.DurationSeconds,
	})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnf("websocket upgrade failed: %v", err)
		return
	}

	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	logger := s.logger.With(map[string]interface{}{"session": sessionID})

	transport := wstransport.NewService(conn, logger)
	pipeline := factories.BuildPipeline(
		s.settings, transport, s.manager, s.chat, nil, sessionID, logger,
	)

	go s.runPipeline(pipeline, logger)
}

// runPipeline owns the session lifetime. The connection is hijacked by the
// upgrade, so the request context is useless here; the pipeline ends when the
// transport reports the connection closed.
func (s *Server) runPipeline(pipeline *runner.Runner, logger *core.Logger) {
	if err := pipeline.Start(context.Background()); err != nil {
		logger.Errorf("pipeline start failed: %v", err)
		pipeline.Stop()
		return
	}
	logger.Infof("voice session started")
	<-pipeline.Done()
	if err := pipeline.Stop(); err != nil {
		logger.Warnf("pipeline stop: %v", err)
	}
	logger.Infof("voice session ended")
}

func (s *Server) readJSON(r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, 1<<20))
	if err != nil {
		return err
	}
	return sonic.Unmarshal(body, v)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		s.logger.Errorf("failed to encode response: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
