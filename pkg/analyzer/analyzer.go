package analyzer

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"dialog-analyzer/pkg/errors"
	"dialog-analyzer/pkg/media"
)

// Analyzer measures agent responsiveness in two-channel dialog recordings.
// It holds only immutable configuration and may be shared across goroutines.
type Analyzer struct {
	config Config
	logger *logrus.Logger
}

// New creates an Analyzer. Zero-valued config fields fall back to defaults.
func New(logger *logrus.Logger, config Config) *Analyzer {
	defaults := DefaultConfig()
	if config.ExpectedSampleRate <= 0 {
		config.ExpectedSampleRate = defaults.ExpectedSampleRate
	}
	if config.AmplitudeThreshold <= 0 {
		config.AmplitudeThreshold = defaults.AmplitudeThreshold
	}
	if config.GoodReactionThresholdMS <= 0 {
		config.GoodReactionThresholdMS = defaults.GoodReactionThresholdMS
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &Analyzer{
		config: config,
		logger: logger,
	}
}

// Config returns the analyzer configuration.
func (a *Analyzer) Config() Config {
	return a.config
}

// LoadAudio decodes a stereo recording and splits it into the abonent
// (channel 0) and agent (channel 1) sample sequences.
func (a *Analyzer) LoadAudio(path string) (abonent, agent []float64, sampleRate int, err error) {
	reader, err := media.NewWAVReader(path)
	if err != nil {
		return nil, nil, 0, errors.NewDecodeError(err, path)
	}
	defer reader.Close()

	// Format validation happens before any channel processing
	if reader.SampleRate != a.config.ExpectedSampleRate {
		return nil, nil, 0, errors.NewFormatError(
			fmt.Sprintf("expected %d Hz, got %d Hz", a.config.ExpectedSampleRate, reader.SampleRate),
			map[string]interface{}{
				"expected_sample_rate": a.config.ExpectedSampleRate,
				"actual_sample_rate":   reader.SampleRate,
			})
	}
	if reader.Channels != 2 {
		return nil, nil, 0, errors.NewFormatError(
			fmt.Sprintf("expected stereo recording, got %d channel(s)", reader.Channels),
			map[string]interface{}{
				"channels": reader.Channels,
			})
	}

	samples, err := reader.ReadAll()
	if err != nil {
		return nil, nil, 0, errors.NewDecodeError(err, path)
	}

	frames := len(samples) / 2
	abonent = make([]float64, frames)
	agent = make([]float64, frames)
	for i := 0; i < frames; i++ {
		abonent[i] = samples[i*2]
		agent[i] = samples[i*2+1]
	}

	a.logger.WithFields(logrus.Fields{
		"path":        path,
		"sample_rate": reader.SampleRate,
		"frames":      frames,
	}).Debug("Loaded stereo recording")

	return abonent, agent, reader.SampleRate, nil
}

// ComputeReaction measures the gap between the end of the abonent utterance
// bounded by window and the start of the agent's reply.
//
// Window times convert to sample indices by truncating multiplication,
// matching how existing window data was produced.
func (a *Analyzer) ComputeReaction(abonent, agent []float64, sampleRate int, window TimeWindow) (ReactionTimeResult, error) {
	startIdx := int(window.Start * float64(sampleRate))
	endIdx := int(window.End * float64(sampleRate))

	if startIdx < 0 || startIdx >= len(abonent) || endIdx > len(abonent) {
		return ReactionTimeResult{}, errors.NewRangeError(
			fmt.Sprintf("window [%.3f, %.3f]s does not fit a recording of %d samples", window.Start, window.End, len(abonent)),
			map[string]interface{}{
				"start_idx": startIdx,
				"end_idx":   endIdx,
				"samples":   len(abonent),
			})
	}
	if startIdx >= endIdx {
		return ReactionTimeResult{}, errors.NewRangeError(
			fmt.Sprintf("window start %.3fs must be before end %.3fs", window.Start, window.End),
			map[string]interface{}{
				"start_idx": startIdx,
				"end_idx":   endIdx,
			})
	}

	relEnd, err := a.FindSpeechEnd(abonent[startIdx:endIdx])
	if err != nil {
		return ReactionTimeResult{}, err
	}
	abonentSpeechEndIdx := startIdx + relEnd

	if abonentSpeechEndIdx >= len(agent) {
		return ReactionTimeResult{}, errors.NewRangeError(
			"abonent speech ends beyond the agent channel",
			map[string]interface{}{
				"abonent_speech_end_idx": abonentSpeechEndIdx,
				"agent_samples":          len(agent),
			})
	}

	relStart, err := a.FindSpeechStart(agent[abonentSpeechEndIdx:])
	if err != nil {
		return ReactionTimeResult{}, err
	}
	agentSpeechStartIdx := abonentSpeechEndIdx + relStart

	reactionSamples := agentSpeechStartIdx - abonentSpeechEndIdx
	reactionTimeMS := float64(reactionSamples) / float64(sampleRate) * 1000

	return ReactionTimeResult{
		ReactionTimeMS:      reactionTimeMS,
		IsGoodReaction:      reactionTimeMS <= a.config.GoodReactionThresholdMS,
		AbonentSpeechEndIdx: abonentSpeechEndIdx,
		AgentSpeechStartIdx: agentSpeechStartIdx,
	}, nil
}

// ComputeStatistics aggregates an ordered sequence of reaction results.
func (a *Analyzer) ComputeStatistics(results []ReactionTimeResult) (DialogStatistics, error) {
	if len(results) == 0 {
		return DialogStatistics{}, errors.NewEmptyInput("no reaction results to aggregate")
	}

	sum := 0.0
	min := results[0].ReactionTimeMS
	max := results[0].ReactionTimeMS
	goodCount := 0

	for _, r := range results {
		sum += r.ReactionTimeMS
		if r.ReactionTimeMS < min {
			min = r.ReactionTimeMS
		}
		if r.ReactionTimeMS > max {
			max = r.ReactionTimeMS
		}
		if r.IsGoodReaction {
			goodCount++
		}
	}

	return DialogStatistics{
		Results:                 results,
		AverageReactionTimeMS:   sum / float64(len(results)),
		GoodReactionsCount:      goodCount,
		GoodReactionsPercentage: float64(goodCount) / float64(len(results)) * 100,
		MinReactionTimeMS:       min,
		MaxReactionTimeMS:       max,
	}, nil
}

// AnalyzeDialogTurn loads a recording and measures a single dialog turn.
func (a *Analyzer) AnalyzeDialogTurn(path string, window TimeWindow) (ReactionTimeResult, error) {
	abonent, agent, sampleRate, err := a.LoadAudio(path)
	if err != nil {
		return ReactionTimeResult{}, err
	}
	return a.ComputeReaction(abonent, agent, sampleRate, window)
}

// AnalyzeMultipleTurns loads a recording once, measures each window in input
// order, and aggregates the results. The batch aborts on the first failing
// window; no partial statistics are returned.
func (a *Analyzer) AnalyzeMultipleTurns(path string, windows []TimeWindow) (DialogStatistics, error) {
	if len(windows) == 0 {
		// Checked before the decoder is ever touched
		return DialogStatistics{}, errors.NewEmptyInput("no windows provided")
	}

	abonent, agent, sampleRate, err := a.LoadAudio(path)
	if err != nil {
		return DialogStatistics{}, err
	}

	results := make([]ReactionTimeResult, 0, len(windows))
	for i, window := range windows {
		result, err := a.ComputeReaction(abonent, agent, sampleRate, window)
		if err != nil {
			// Attach the failing window index without changing the kind
			if serr, ok := err.(*errors.Error); ok {
				return DialogStatistics{}, serr.WithField("window_index", i)
			}
			return DialogStatistics{}, err
		}
		results = append(results, result)
	}

	stats, err := a.ComputeStatistics(results)
	if err != nil {
		return DialogStatistics{}, err
	}

	a.logger.WithFields(logrus.Fields{
		"path":       path,
		"windows":    len(windows),
		"average_ms": stats.AverageReactionTimeMS,
		"good_pct":   stats.GoodReactionsPercentage,
	}).Info("Dialog analysis complete")

	return stats, nil
}
