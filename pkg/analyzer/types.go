package analyzer

// Config holds the analyzer parameters, fixed at construction.
type Config struct {
	// ExpectedSampleRate is the only sample rate accepted from recordings (Hz).
	// No resampling is performed.
	ExpectedSampleRate int

	// AmplitudeThreshold is compared against absolute normalized sample
	// values to decide whether a sample is speech.
	AmplitudeThreshold float64

	// GoodReactionThresholdMS is the inclusive upper bound for a reaction
	// to count as good.
	GoodReactionThresholdMS float64
}

// DefaultConfig returns the default analyzer configuration.
func DefaultConfig() Config {
	return Config{
		ExpectedSampleRate:      8000,
		AmplitudeThreshold:      0.02,
		GoodReactionThresholdMS: 1200.0,
	}
}

// TimeWindow bounds one abonent utterance, in seconds from recording start.
type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ReactionTimeResult is the measurement for a single dialog turn.
type ReactionTimeResult struct {
	ReactionTimeMS      float64 `json:"reaction_time_ms"`
	IsGoodReaction      bool    `json:"is_good_reaction"`
	AbonentSpeechEndIdx int     `json:"abonent_speech_end_idx"`
	AgentSpeechStartIdx int     `json:"agent_speech_start_idx"`
}

// DialogStatistics aggregates reaction measurements across dialog turns.
type DialogStatistics struct {
	Results                 []ReactionTimeResult `json:"results"`
	AverageReactionTimeMS   float64              `json:"average_reaction_time_ms"`
	GoodReactionsCount      int                  `json:"good_reactions_count"`
	GoodReactionsPercentage float64              `json:"good_reactions_percentage"`
	MinReactionTimeMS       float64              `json:"min_reaction_time_ms"`
	MaxReactionTimeMS       float64              `json:"max_reaction_time_ms"`
}
