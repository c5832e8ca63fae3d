package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"bhashakit/core"
	"bhashakit/factories"
	"bhashakit/server"
	googletts "bhashakit/services/google/tts"
	"bhashakit/session"
)

func main() {
	var settingsPath string
	flag.StringVar(&settingsPath, "settings", "settings.json", "path to settings file")
	flag.Parse()

	logger := core.GetLogger()

	if err := godotenv.Load(".env.local"); err != nil {
		logger.With(map[string]any{"error": err}).Warn("No .env.local file found or failed to load")
	}

	settings, err := factories.SettingsConfigFromFile(settingsPath)
	if err != nil {
		logger.With(map[string]any{"error": err}).Warn("Using default settings")
	}

	keys := factories.LoadAPIKeys()
	if keys.Gemini == "" {
		logger.Fatal("GEMINI_API_KEY is not set")
	}
	settings.InjectAPIKeys(keys)

	chatService, err := factories.BuildChatServiceChain(settings, logger)
	if err != nil {
		logger.Fatalf("failed to build chat service: %v", err)
	}
	if err := chatService.Init(context.Background()); err != nil {
		logger.Fatalf("failed to initialize chat service: %v", err)
	}

	ttsService := buildTTSService(settings, keys)
	if ttsService == nil {
		logger.Warn("GOOGLE_TTS_API_KEY is not set, /tts is disabled")
	} else if err := ttsService.Init(context.Background()); err != nil {
		logger.Fatalf("failed to initialize tts service: %v", err)
	}

	manager := session.NewManager(
		session.NewMemoryStore(),
		chatService,
		settings.SessionManagerConfig(),
		logger,
	)

	srv := &http.Server{
		Addr:    settings.Server.Addr,
		Handler: server.New(settings, manager, chatService, ttsService, logger).Routes(),
	}

	go func() {
		logger.Infof("listening on %s", settings.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("shutdown: %v", err)
	}
	chatService.Cleanup()
	if ttsService != nil {
		ttsService.Cleanup()
	}
}

// buildTTSService returns nil when no TTS credential is configured; the
// server answers /tts with 503 in that case.
func buildTTSService(settings factories.SettingsConfig, keys factories.APIKeys) *googletts.GoogleTTSService {
	if keys.GoogleTTS == "" {
		return nil
	}
	cfg := googletts.DefaultConfig(keys.GoogleTTS)
	if settings.TTS.LanguageCode != "" {
		cfg.LanguageCode = settings.TTS.LanguageCode
	}
	if settings.TTS.VoiceName != "" {
		cfg.VoiceName = settings.TTS.VoiceName
	}
	return googletts.NewGoogleTTSService(cfg)
}
