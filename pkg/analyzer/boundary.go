package analyzer

import (
	"dialog-analyzer/pkg/errors"
)

// FindSpeechEnd returns the index of the last sample in the abonent segment
// whose absolute value exceeds the amplitude threshold. A single linear scan,
// no index list is materialized.
func (a *Analyzer) FindSpeechEnd(segment []float64) (int, error) {
	last := -1
	for i, s := range segment {
		if s > a.config.AmplitudeThreshold || s < -a.config.AmplitudeThreshold {
			last = i
		}
	}

	if last < 0 {
		return 0, errors.NewNoSpeechDetected(errors.PartyAbonent, map[string]interface{}{
			"segment_len": len(segment),
		})
	}
	return last, nil
}

// FindSpeechStart returns the index of the first sample in the agent segment
// whose absolute value exceeds the amplitude threshold.
func (a *Analyzer) FindSpeechStart(segment []float64) (int, error) {
	for i, s := range segment {
		if s > a.config.AmplitudeThreshold || s < -a.config.AmplitudeThreshold {
			return i, nil
		}
	}

	return 0, errors.NewNoSpeechDetected(errors.PartyAgent, map[string]interface{}{
		"segment_len": len(segment),
	})
}
