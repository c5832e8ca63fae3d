package audio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bhashakit/core"
)

func TestWavWrapAndStrip(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0xFF, 0x7F, 0x00, 0x80, 0x10, 0x20}

	wav, err := PCMBytesToWavBytes(pcm, 1, 8000)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(wav[:4]))

	stripped, err := StripWAVHeaderIfPresent(wav)
	require.NoError(t, err)
	assert.Equal(t, pcm, stripped)
}

func TestStripWAVHeaderPassesThroughRawPCM(t *testing.T) {
	pcm := []byte{0x01, 0x00, 0x02, 0x00}
	out, err := StripWAVHeaderIfPresent(pcm)
	require.NoError(t, err)
	assert.Equal(t, pcm, out)
}

func TestULawRoundTripPreservesSilence(t *testing.T) {
	// 16-bit silence survives a u-law round trip near-exactly.
	pcm := make([]byte, 320)
	ulaw, err := PCMBytesToULaw(pcm)
	require.NoError(t, err)
	assert.Len(t, ulaw, 160)

	back := ULawBytesToPCM(ulaw)
	require.Len(t, back, 320)
	for i, sample := range back {
		assert.LessOrEqual(t, int(sample), 8, "sample byte %d", i)
	}
}

func TestPCMBytesToULawRejectsOddLength(t *testing.T) {
	_, err := PCMBytesToULaw([]byte{0x01})
	require.Error(t, err)
}

func TestConvertAudioChunkULawToPCMStereo(t *testing.T) {
	data := []byte{0x7F, 0x7F}
	out, err := ConvertAudioChunk(core.AudioChunk{
		Data:       &data,
		SampleRate: 8000,
		Channels:   1,
		Format:     core.ULAW,
	}, core.PCM, 2)
	require.NoError(t, err)
	assert.Equal(t, core.PCM, out.Format)
	assert.Equal(t, 2, out.Channels)
	assert.Len(t, *out.Data, 8) // 2 samples * 2 bytes * 2 channels
}

func TestConvertAudioChunkRejectsMP3(t *testing.T) {
	data := []byte{0x00}
	_, err := ConvertAudioChunk(core.AudioChunk{Data: &data, Format: core.MP3}, core.PCM, 1)
	require.Error(t, err)
}
