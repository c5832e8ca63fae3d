package factories

import (
	"context"
	"errors"

	"bhashakit/core"
)

// FailoverChatService tries each configured provider in order. A provider
// outage or rate limit moves on to the next one; validation and safety-block
// failures are returned as-is since retrying elsewhere would not change them.
type FailoverChatService struct {
	services []core.IChatService
	logger   *core.Logger
}

func NewFailoverChatService(services []core.IChatService, logger *core.Logger) *FailoverChatService {
	return &FailoverChatService{
		services: services,
		logger:   logger.With(map[string]interface{}{"component": "chat_failover"}),
	}
}

func (f *FailoverChatService) Init(ctx context.Context) error {
	if len(f.services) == 0 {
		return errors.New("no chat services configured")
	}
	for _, svc := range f.services {
		if err := svc.Init(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (f *FailoverChatService) Cleanup() error {
	var first error
	for _, svc := range f.services {
		if err := svc.Cleanup(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f *FailoverChatService) Reset() error {
	for _, svc := range f.services {
		if err := svc.Reset(); err != nil {
			return err
		}
	}
	return nil
}

func (f *FailoverChatService) GenerateReply(ctx context.Context, history []core.ChatMessage, userText string) (string, error) {
	var lastErr error
	for i, svc := range f.services {
		reply, err := svc.GenerateReply(ctx, history, userText)
		if err == nil {
			return reply, nil
		}
		switch core.ErrKindOf(err) {
		case core.ErrKindValidation, core.ErrKindContentBlocked, core.ErrKindBusy:
			return "", err
		}
		if ctx.Err() != nil {
			return "", err
		}
		lastErr = err
		if i < len(f.services)-1 {
			f.logger.Warnf("provider %d failed, trying next: %v", i, err)
		}
	}
	return "", lastErr
}

// BuildChatServiceChain constructs the primary provider plus any fallbacks
// whose credentials are present, wrapped in a FailoverChatService. Fallbacks
// without keys are skipped; a missing primary key is the caller's startup
// error, surfaced by Init.
func BuildChatServiceChain(settings SettingsConfig, logger *core.Logger) (core.IChatService, error) {
	primary, err := BuildChatService(settings.Chat)
	if err != nil {
		return nil, err
	}
	services := []core.IChatService{primary}
	for _, fb := range settings.ChatFallbacks {
		if fb.OpenAIConfig != nil && fb.OpenAIConfig.APIKey == "" {
			continue
		}
		if fb.GeminiConfig != nil && fb.GeminiConfig.APIKey == "" {
			continue
		}
		svc, err := BuildChatService(fb)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return NewFailoverChatService(services, logger), nil
}
