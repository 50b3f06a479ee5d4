package navdata

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/chrissnell/demandmonitor/internal/demand"
)

// Seed is the on-disk import format for reference data.
type Seed struct {
	Fixes   []Fix        `json:"fixes"`
	Airways []SeedAirway `json:"airways"`
}

// SeedAirway lists an airway's fixes in order. Positions come from the
// seed's fixes.
type SeedAirway struct {
	Name  string   `json:"name"`
	Type  string   `json:"type,omitempty"`
	Fixes []string `json:"fixes"`
}

// LoadSeedFile imports a JSON seed file.
func (s *Store) LoadSeedFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read navdata seed %s: %w", path, err)
	}
	var seed Seed
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("could not parse navdata seed %s: %w", path, err)
	}
	return s.Import(ctx, seed)
}

// Import loads fixes, then builds each airway from their positions.
func (s *Store) Import(ctx context.Context, seed Seed) error {
	if err := s.AddFixes(ctx, seed.Fixes); err != nil {
		return err
	}

	for _, a := range seed.Airways {
		points := make([]demand.Waypoint, 0, len(a.Fixes))
		for _, name := range a.Fixes {
			c, ok, err := s.FixPosition(ctx, name)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("airway %s references unknown fix %s", a.Name, name)
			}
			points = append(points, demand.Waypoint{Name: name, Coordinate: c})
		}
		if err := s.PutAirway(ctx, a.Name, a.Type, points); err != nil {
			return err
		}
	}

	s.logger.Infow("imported navdata", "fixes", len(seed.Fixes), "airways", len(seed.Airways))
	return nil
}
