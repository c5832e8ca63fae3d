package arbitration

import "time"

// Config holds configuration for ArbitrationHandler.
type Config struct {
	// SilenceTimeout is how long to wait after the last transcript fragment
	// before treating the accumulated transcript as a complete utterance.
	// Default: 1500ms.
	SilenceTimeout time.Duration `json:"silence_timeout"`
	// Language is the recognition language passed to the device.
	Language string `json:"language"`
	// SessionId identifies the conversation this pipeline feeds.
	SessionId string `json:"session_id"`
	// AutoResumeListening re-enters Listening after synthesis completes while
	// the conversation is active.
	AutoResumeListening bool `json:"auto_resume_listening"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		SilenceTimeout:      1500 * time.Millisecond,
		Language:            "en-US",
		AutoResumeListening: true,
	}
}
