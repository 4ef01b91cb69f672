package extract

import "time"

// Config controls the behavior of the Extractor.
type Config struct {
	// MaxTokens is the token budget for the candidate response.
	MaxTokens int

	// Temperature controls LLM output randomness (0.0-1.0).
	Temperature float64

	// MaxAttempts bounds how many candidates are requested before the
	// extraction fails.
	MaxAttempts int

	// Timeout bounds one candidate request.
	Timeout time.Duration

	// MaxHistory is the number of most recent chat turns sent with the
	// message. Zero sends all of them.
	MaxHistory int

	// Policy fills the values the learner did not state.
	Policy Policy
}

// DefaultConfig returns recommended defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   512,
		Temperature: 0,
		MaxAttempts: 2,
		Timeout:     30 * time.Second,
		MaxHistory:  10,
		Policy:      DefaultPolicy(),
	}
}
