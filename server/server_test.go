package server

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhashakit/core"
	"bhashakit/factories"
	googletts "bhashakit/services/google/tts"
	"bhashakit/session"
)

type scriptedChatService struct {
	replyFn func(history []core.ChatMessage, text string) (string, error)
}

func (s *scriptedChatService) Init(_ context.Context) error { return nil }
func (s *scriptedChatService) Cleanup() error               { return nil }
func (s *scriptedChatService) Reset() error                 { return nil }
func (s *scriptedChatService) GenerateReply(_ context.Context, history []core.ChatMessage, text string) (string, error) {
	return s.replyFn(history, text)
}

func newTestServer(t *testing.T, chat core.IChatService, tts *googletts.GoogleTTSService) *httptest.Server {
	t.Helper()
	logger := core.NewDevelopmentLogger()
	manager := session.NewManager(session.NewMemoryStore(), chat, session.DefaultConfig(), logger)
	srv := New(factories.DefaultSettingsConfig(), manager, chat, tts, logger)
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewReader([]byte(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]interface{}
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestChatGetLiveness(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "hi", nil
	}}
	ts := newTestServer(t, chat, nil)

	resp, err := http.Get(ts.URL + "/chat")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "API is running. Use POST to chat.", body["message"])
}

func TestChatPostReturnsReplyAndSessionID(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, text string) (string, error) {
		return "You said: " + text, nil
	}}
	ts := newTestServer(t, chat, nil)

	resp, body := postJSON(t, ts.URL+"/chat", `{"sessionId":"lesson-1","message":"hello"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "You said: hello", body["response"])
	assert.Equal(t, "lesson-1", body["sessionId"])
}

func TestChatPostRequiresSessionID(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		t.Fatal("upstream must not be called without a session id")
		return "", nil
	}}
	ts := newTestServer(t, chat, nil)

	resp, body := postJSON(t, ts.URL+"/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Session ID is required", body["error"])
}

func TestChatPostContinuesSession(t *testing.T) {
	var histories [][]core.ChatMessage
	chat := &scriptedChatService{replyFn: func(history []core.ChatMessage, _ string) (string, error) {
		histories = append(histories, history)
		return "ok", nil
	}}
	ts := newTestServer(t, chat, nil)

	_, first := postJSON(t, ts.URL+"/chat", `{"sessionId":"lesson-2","message":"one"}`)
	sessionID := first["sessionId"].(string)
	postJSON(t, ts.URL+"/chat", fmt.Sprintf(`{"sessionId":%q,"message":"two"}`, sessionID))

	require.Len(t, histories, 2)
	assert.Greater(t, len(histories[1]), len(histories[0]),
		"second call sees the first exchange in history")
}

func TestChatPostValidation(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	ts := newTestServer(t, chat, nil)

	resp, body := postJSON(t, ts.URL+"/chat", `{"sessionId":"lesson-3","message":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Message cannot be empty", body["error"])
}

func TestChatPostRateLimited(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "", core.NewChatError(core.ErrKindRateLimited, "API request limit reached. Please try again later.", nil)
	}}
	ts := newTestServer(t, chat, nil)

	resp, body := postJSON(t, ts.URL+"/chat", `{"sessionId":"lesson-4","message":"hello"}`)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "API request limit reached. Please try again later.", body["error"])
}

func TestChatPostSafetyBlockIsAReply(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "", core.NewChatError(core.ErrKindContentBlocked, "My response was blocked due to safety settings.", nil)
	}}
	ts := newTestServer(t, chat, nil)

	resp, body := postJSON(t, ts.URL+"/chat", `{"sessionId":"lesson-5","message":"hello"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "My response was blocked due to safety settings.", body["response"])
}

func TestChatPostUpstreamFailure(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "", core.NewChatError(core.ErrKindUnavailable, "The model is unreachable right now. Please try again.", nil)
	}}
	ts := newTestServer(t, chat, nil)

	resp, _ := postJSON(t, ts.URL+"/chat", `{"sessionId":"lesson-6","message":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestChatPostMalformedBody(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	ts := newTestServer(t, chat, nil)

	resp, _ := postJSON(t, ts.URL+"/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func newStubTTS(t *testing.T, handler http.HandlerFunc) *googletts.GoogleTTSService {
	t.Helper()
	upstream := httptest.NewServer(handler)
	t.Cleanup(upstream.Close)

	svc := googletts.NewGoogleTTSService(googletts.Config{
		APIKey:  "test-key",
		BaseURL: upstream.URL,
	})
	require.NoError(t, svc.Init(context.Background()))
	return svc
}

func TestTTSReturnsBase64Audio(t *testing.T) {
	audio := []byte("fake-mp3-bytes")
	tts := newStubTTS(t, func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/text:synthesize"))
		fmt.Fprintf(w, `{"audioContent":%q}`, base64.StdEncoding.EncodeToString(audio))
	})
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	ts := newTestServer(t, chat, tts)

	resp, body := postJSON(t, ts.URL+"/tts", `{"text":"ನಮಸ್ಕಾರ"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	decoded, err := base64.StdEncoding.DecodeString(body["audioBase64"].(string))
	require.NoError(t, err)
	assert.Equal(t, audio, decoded)
	assert.Equal(t, "mp3", body["format"])
}

func TestTTSULawFormat(t *testing.T) {
	pcm := make([]byte, 3200) // 1600 mono samples at 8 kHz
	tts := newStubTTS(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"audioContent":%q}`, base64.StdEncoding.EncodeToString(pcm))
	})
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	ts := newTestServer(t, chat, tts)

	resp, body := postJSON(t, ts.URL+"/tts", `{"text":"hello","format":"ulaw"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ulaw", body["format"])
	assert.InDelta(t, 0.2, body["durationSeconds"].(float64), 1e-9)

	decoded, err := base64.StdEncoding.DecodeString(body["audioBase64"].(string))
	require.NoError(t, err)
	assert.Len(t, decoded, 1600)
}

func TestTTSUnsupportedFormat(t *testing.T) {
	tts := newStubTTS(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	ts := newTestServer(t, chat, tts)

	resp, body := postJSON(t, ts.URL+"/tts", `{"text":"hello","format":"ogg"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Unsupported audio format", body["error"])
}

func TestTTSRequiresText(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	tts := newStubTTS(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	ts := newTestServer(t, chat, tts)

	resp, _ := postJSON(t, ts.URL+"/tts", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTTSUpstreamFailure(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	tts := newStubTTS(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	ts := newTestServer(t, chat, tts)

	resp, _ := postJSON(t, ts.URL+"/tts", `{"text":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestTTSNotConfigured(t *testing.T) {
	chat := &scriptedChatService{replyFn: func(_ []core.ChatMessage, _ string) (string, error) {
		return "ok", nil
	}}
	ts := newTestServer(t, chat, nil)

	resp, _ := postJSON(t, ts.URL+"/tts", `{"text":"hello"}`)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
