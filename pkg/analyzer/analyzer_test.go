package analyzer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dialog-analyzer/pkg/errors"
	"dialog-analyzer/pkg/media"
)

// writeStereoWAV writes a two-channel 16-bit PCM fixture from normalized
// per-channel samples.
func writeStereoWAV(t *testing.T, path string, sampleRate int, abonent, agent []float64) {
	t.Helper()
	require.Equal(t, len(abonent), len(agent), "fixture channels must be equal length")

	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer, err := media.NewWAVWriter(f, sampleRate, 2)
	require.NoError(t, err)

	interleaved := make([]int16, len(abonent)*2)
	for i := range abonent {
		interleaved[i*2] = int16(abonent[i] * 32768)
		interleaved[i*2+1] = int16(agent[i] * 32768)
	}
	require.NoError(t, writer.WriteSamples(interleaved))
	require.NoError(t, writer.Finalize())
}

// dialogFixture builds the reference recording: abonent speech at amplitude
// 0.5 in samples [8000, 32000), agent speech in [40000, 64000), 8000 Hz.
func dialogFixture(t *testing.T) string {
	t.Helper()

	const frames = 64000
	abonent := make([]float64, frames)
	agent := make([]float64, frames)
	for i := 8000; i < 32000; i++ {
		abonent[i] = 0.5
	}
	for i := 40000; i < 64000; i++ {
		agent[i] = 0.5
	}

	path := filepath.Join(t.TempDir(), "dialog.wav")
	writeStereoWAV(t, path, 8000, abonent, agent)
	return path
}

func TestLoadAudioSplitsChannels(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	assert.Equal(t, 8000, sampleRate)
	assert.Equal(t, len(abonent), len(agent))
	assert.Len(t, abonent, 64000)

	assert.InDelta(t, 0.5, abonent[10000], 1e-3)
	assert.InDelta(t, 0.0, agent[10000], 1e-9)
	assert.InDelta(t, 0.5, agent[50000], 1e-3)
	assert.InDelta(t, 0.0, abonent[50000], 1e-9)
}

func TestLoadAudioMissingFile(t *testing.T) {
	a := testAnalyzer()

	_, _, _, err := a.LoadAudio(filepath.Join(t.TempDir(), "missing.wav"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrDecodeFailed))
	assert.Equal(t, "DECODE_ERROR", errors.GetErrorCode(err))
}

func TestLoadAudioSampleRateMismatch(t *testing.T) {
	a := testAnalyzer()

	// 16 kHz file against the default 8 kHz expectation
	samples := make([]float64, 1600)
	path := filepath.Join(t.TempDir(), "wideband.wav")
	writeStereoWAV(t, path, 16000, samples, samples)

	_, _, _, err := a.LoadAudio(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrInvalidFormat))
	assert.Equal(t, 16000, errors.GetErrorFields(err)["actual_sample_rate"])
}

func TestLoadAudioRejectsMono(t *testing.T) {
	a := testAnalyzer()

	path := filepath.Join(t.TempDir(), "mono.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	writer, err := media.NewWAVWriter(f, 8000, 1)
	require.NoError(t, err)
	require.NoError(t, writer.WriteSamples(make([]int16, 8000)))
	require.NoError(t, writer.Finalize())

	_, _, _, err = a.LoadAudio(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrInvalidFormat))
}

func TestComputeReactionReferenceScenario(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	result, err := a.ComputeReaction(abonent, agent, sampleRate, TimeWindow{Start: 1.0, End: 4.0})
	require.NoError(t, err)

	assert.Equal(t, 31999, result.AbonentSpeechEndIdx)
	assert.Equal(t, 40000, result.AgentSpeechStartIdx)
	assert.Greater(t, result.ReactionTimeMS, 900.0)
	assert.Less(t, result.ReactionTimeMS, 1100.0)
	assert.True(t, result.IsGoodReaction)
	assert.Greater(t, result.AgentSpeechStartIdx, result.AbonentSpeechEndIdx)
}

func TestComputeReactionWindowBeyondRecording(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	_, err = a.ComputeReaction(abonent, agent, sampleRate, TimeWindow{Start: 1.0, End: 500.0})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrWindowOutOfRange))
}

func TestComputeReactionInvertedWindow(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	_, err = a.ComputeReaction(abonent, agent, sampleRate, TimeWindow{Start: 4.0, End: 1.0})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrWindowOutOfRange))

	_, err = a.ComputeReaction(abonent, agent, sampleRate, TimeWindow{Start: 2.0, End: 2.0})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrWindowOutOfRange))
}

func TestComputeReactionNegativeStart(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	_, err = a.ComputeReaction(abonent, agent, sampleRate, TimeWindow{Start: -1.0, End: 4.0})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrWindowOutOfRange))
}

func TestComputeReactionSilentAbonent(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	// [0.0, 0.9)s is silence on the abonent channel
	_, err = a.ComputeReaction(abonent, agent, sampleRate, TimeWindow{Start: 0.0, End: 0.9})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrNoSpeechDetected))
	assert.Equal(t, errors.PartyAbonent, errors.Party(err))
}

func TestComputeReactionSilentAgent(t *testing.T) {
	a := testAnalyzer()

	const frames = 32000
	abonent := make([]float64, frames)
	agent := make([]float64, frames)
	for i := 8000; i < 16000; i++ {
		abonent[i] = 0.5
	}
	// agent never speaks

	path := filepath.Join(t.TempDir(), "no-reply.wav")
	writeStereoWAV(t, path, 8000, abonent, agent)

	ab, ag, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	_, err = a.ComputeReaction(ab, ag, sampleRate, TimeWindow{Start: 0.5, End: 3.0})
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrNoSpeechDetected))
	assert.Equal(t, errors.PartyAgent, errors.Party(err))
}

func TestGoodReactionBoundaryInclusive(t *testing.T) {
	// Gap of exactly 8000 samples at 8000 Hz: the reaction lands on
	// 1000.0 ms, which the threshold comparison must treat as good
	const frames = 24000
	abonent := make([]float64, frames)
	agent := make([]float64, frames)
	for i := 0; i < 8000; i++ {
		abonent[i] = 0.5
	}
	for i := 15999; i < frames; i++ {
		agent[i] = 0.5
	}

	path := filepath.Join(t.TempDir(), "boundary.wav")
	writeStereoWAV(t, path, 8000, abonent, agent)

	a := New(nil, Config{
		ExpectedSampleRate:      8000,
		AmplitudeThreshold:      0.02,
		GoodReactionThresholdMS: 1000.0,
	})

	ab, ag, sampleRate, err := a.LoadAudio(path)
	require.NoError(t, err)

	result, err := a.ComputeReaction(ab, ag, sampleRate, TimeWindow{Start: 0.0, End: 1.5})
	require.NoError(t, err)
	assert.Equal(t, 7999, result.AbonentSpeechEndIdx)
	assert.Equal(t, 15999, result.AgentSpeechStartIdx)
	assert.Equal(t, 1000.0, result.ReactionTimeMS)
	assert.True(t, result.IsGoodReaction, "reaction exactly at the threshold counts as good")

	strict := New(nil, Config{
		ExpectedSampleRate:      8000,
		AmplitudeThreshold:      0.02,
		GoodReactionThresholdMS: 999.875,
	})
	result, err = strict.ComputeReaction(ab, ag, sampleRate, TimeWindow{Start: 0.0, End: 1.5})
	require.NoError(t, err)
	assert.False(t, result.IsGoodReaction)
}

func TestAnalyzeDialogTurn(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	result, err := a.AnalyzeDialogTurn(path, TimeWindow{Start: 1.0, End: 4.0})
	require.NoError(t, err)
	assert.Equal(t, 31999, result.AbonentSpeechEndIdx)
	assert.Equal(t, 40000, result.AgentSpeechStartIdx)
}

func TestAnalyzeMultipleTurns(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	windows := []TimeWindow{
		{Start: 1.0, End: 4.0},
		{Start: 0.5, End: 4.5},
	}

	stats, err := a.AnalyzeMultipleTurns(path, windows)
	require.NoError(t, err)

	require.Len(t, stats.Results, 2)
	assert.Equal(t, 2, stats.GoodReactionsCount)
	assert.Equal(t, 100.0, stats.GoodReactionsPercentage)
	assert.LessOrEqual(t, stats.MinReactionTimeMS, stats.AverageReactionTimeMS)
	assert.LessOrEqual(t, stats.AverageReactionTimeMS, stats.MaxReactionTimeMS)
}

func TestAnalyzeMultipleTurnsIdempotent(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	windows := []TimeWindow{
		{Start: 1.0, End: 4.0},
		{Start: 0.5, End: 4.5},
	}

	first, err := a.AnalyzeMultipleTurns(path, windows)
	require.NoError(t, err)
	second, err := a.AnalyzeMultipleTurns(path, windows)
	require.NoError(t, err)

	assert.Equal(t, first, second, "re-analyzing the same file must be bit-identical")
}

func TestAnalyzeMultipleTurnsEmptyWindows(t *testing.T) {
	a := testAnalyzer()

	// The path does not exist: the decoder must never be invoked when the
	// window list is empty
	_, err := a.AnalyzeMultipleTurns(filepath.Join(t.TempDir(), "never-opened.wav"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrEmptyInput))
	assert.False(t, errors.IsErrorType(err, errors.ErrDecodeFailed))
}

func TestAnalyzeMultipleTurnsFailsFast(t *testing.T) {
	a := testAnalyzer()
	path := dialogFixture(t)

	windows := []TimeWindow{
		{Start: 1.0, End: 4.0},
		{Start: 0.0, End: 0.9}, // silent abonent segment
		{Start: 0.5, End: 4.5},
	}

	_, err := a.AnalyzeMultipleTurns(path, windows)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrNoSpeechDetected))
	assert.Equal(t, 1, errors.GetErrorFields(err)["window_index"])
}

func TestAnalyzerDefaults(t *testing.T) {
	a := New(nil, Config{})

	assert.Equal(t, 8000, a.Config().ExpectedSampleRate)
	assert.Equal(t, 0.02, a.Config().AmplitudeThreshold)
	assert.Equal(t, 1200.0, a.Config().GoodReactionThresholdMS)
}
