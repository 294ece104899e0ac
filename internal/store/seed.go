package store

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ykvlv/event-reminder-bot/internal/domain"
)

//go:embed seeds/categories.yaml
var defaultSeed []byte

// Seed lists the global categories created at startup.
type Seed struct {
	Categories []string `yaml:"categories"`
}

// LoadSeed reads a seed file, or the embedded default when path is empty.
func LoadSeed(path string) (Seed, error) {
	data := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Seed{}, err
		}
		data = b
	}
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Seed{}, fmt.Errorf("parse seed: %w", err)
	}
	return s, nil
}

// ApplySeed makes sure every seeded category exists under the global owner.
func ApplySeed(ctx context.Context, repo Repo, s Seed) error {
	for _, name := range s.Categories {
		if name == "" {
			continue
		}
		if _, err := repo.CreateCategory(ctx, domain.GlobalOwnerID, name); err != nil {
			return err
		}
	}
	return nil
}
