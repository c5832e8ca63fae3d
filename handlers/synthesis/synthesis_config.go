package synthesis

// Config holds the synthesis handler tunables.
type Config struct {
	// Language is the BCP 47 tag requested from the device, and the tag the
	// voice advisory is keyed on.
	Language string  `json:"language"`
	Rate     float64 `json:"rate"`
	Pitch    float64 `json:"pitch"`
}

// DefaultConfig returns Kannada synthesis at natural rate and pitch.
func DefaultConfig() Config {
	return Config{
		Language: "kn-IN",
		Rate:     1.0,
		Pitch:    1.0,
	}
}
