package core

// ReviewProfile represents the structure of the .review-assistant.yml file.
type ReviewProfile struct {
	// Custom instructions appended to every review prompt.
	CustomInstructions []string `yaml:"custom_instructions"`

	// Areas the reviewer should pay extra attention to when the caller gives no hint.
	// Example: ["security", "error handling"]
	FocusAreas []string `yaml:"focus_areas"`
}

// DefaultReviewProfile returns a profile with default values.
func DefaultReviewProfile() *ReviewProfile {
	return &ReviewProfile{
		CustomInstructions: []string{},
		FocusAreas:         []string{},
	}
}
