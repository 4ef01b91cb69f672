package learner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrProfileNotFound is returned when a resolver has no profile for a user.
var ErrProfileNotFound = errors.New("learner profile not found")

// Resolver looks up the profile for a user id.
type Resolver interface {
	Resolve(ctx context.Context, userID string) (*Profile, error)
}

// MockResolver answers every lookup with MockProfile.
type MockResolver struct{}

func (MockResolver) Resolve(ctx context.Context, userID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return MockProfile(userID), nil
}

// FixtureResolver serves profiles loaded once from a directory of YAML
// files. Unknown users go to the fallback resolver when one is set.
type FixtureResolver struct {
	profiles map[string]Profile
	fallback Resolver
}

// LoadFixtures reads every *.yaml and *.yml file in dir. A file's user_id
// defaults to its base name.
func LoadFixtures(dir string, fallback Resolver) (*FixtureResolver, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read profile dir: %w", err)
	}

	profiles := make(map[string]Profile)
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}

		path := filepath.Join(dir, e.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read profile %s: %w", path, err)
		}

		var p Profile
		if err := yaml.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("parse profile %s: %w", path, err)
		}
		if p.UserID == "" {
			p.UserID = strings.TrimSuffix(e.Name(), ext)
		}
		if _, dup := profiles[p.UserID]; dup {
			return nil, fmt.Errorf("duplicate profile for user %q in %s", p.UserID, path)
		}
		profiles[p.UserID] = p
	}

	return &FixtureResolver{profiles: profiles, fallback: fallback}, nil
}

func (r *FixtureResolver) Resolve(ctx context.Context, userID string) (*Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p, ok := r.profiles[userID]; ok {
		return &p, nil
	}
	if r.fallback != nil {
		return r.fallback.Resolve(ctx, userID)
	}
	return nil, fmt.Errorf("user %q: %w", userID, ErrProfileNotFound)
}

// Len returns the number of loaded profiles.
func (r *FixtureResolver) Len() int {
	return len(r.profiles)
}
