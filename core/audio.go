package core

type AudioEncodingFormat int

const (
	// MP3 is first so an unset format defaults to it. Opaque to the
	// conversion helpers.
	MP3  AudioEncodingFormat = iota // MPEG-1 Audio Layer III format.
	PCM                             // Pulse-code modulation format.
	ULAW                            // u-law encoding format.
	ALAW                            // A-law encoding format.
	WAV                             // PCM in a RIFF/WAVE container.
)

type AudioChunk struct {
	Data       *[]byte             // Raw audio data.
	SampleRate int                 // Sample rate of the audio data.
	Channels   int                 // Number of audio channels.
	Format     AudioEncodingFormat // Encoding format of the audio data.
}

func (ac *AudioChunk) GetDurationInSeconds() float64 {
	if ac.SampleRate == 0 || ac.Channels == 0 {
		return 0.0
	}
	bytesPerSample := 2 // Assuming 16-bit audio (2 bytes per sample)
	totalSamples := len(*ac.Data) / (bytesPerSample * ac.Channels)
	return float64(totalSamples) / float64(ac.SampleRate)
}
