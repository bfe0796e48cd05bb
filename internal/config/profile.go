package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sadir06/cf-ai-code-review-assistant/internal/core"
)

const maxProfileInstructions = 20

var (
	ErrProfileNotFound = errors.New("review profile not found")
	ErrProfileParsing  = errors.New("review profile parsing failed")
)

// LoadReviewProfile loads and parses a .review-assistant.yml file. When the file
// does not exist the default profile is returned together with ErrProfileNotFound.
func LoadReviewProfile(path string) (*core.ReviewProfile, error) {
	if path == "" {
		return core.DefaultReviewProfile(), ErrProfileNotFound
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.DefaultReviewProfile(), ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	profile := core.DefaultReviewProfile()
	if err := yaml.Unmarshal(data, profile); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProfileParsing, err)
	}
	profile.CustomInstructions = compact(profile.CustomInstructions)
	profile.FocusAreas = compact(profile.FocusAreas)
	if len(profile.CustomInstructions) > maxProfileInstructions {
		return nil, fmt.Errorf("%w: at most %d custom instructions are allowed", ErrProfileParsing, maxProfileInstructions)
	}
	return profile, nil
}

// compact trims entries and drops empty ones.
func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
