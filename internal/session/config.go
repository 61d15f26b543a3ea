package session

// Config controls session generation.
type Config struct {
	// MaxTokens caps the generation response length.
	MaxTokens int

	// Temperature for generation. Sessions want some variety.
	Temperature float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   4096,
		Temperature: 0.7,
	}
}
