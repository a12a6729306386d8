package repository

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/lo"

	"github.com/okian/standings/internal/domain/model"
	"github.com/okian/standings/internal/domain/types"
)

// seedFile is the layout of a YAML seed population.
type seedFile struct {
	Entities []types.EntityPayload `koanf:"entities"`
}

// LoadSeed reads a YAML population of the form
//
//	entities:
//	  - id: u1
//	    kind: user
//	    display_name: Ada
//	    metrics: {rating: 1900, problemsSolved: 120, currentStreak: 4}
//
// Entities are returned unvalidated; callers run them through Upsert.
func LoadSeed(path string) ([]model.Entity, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeed, path, err)
	}
	var seed seedFile
	if err := k.UnmarshalWithConf("", &seed, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSeed, path, err)
	}
	return lo.Map(seed.Entities, func(p types.EntityPayload, _ int) model.Entity {
		return p.ToModel()
	}), nil
}
