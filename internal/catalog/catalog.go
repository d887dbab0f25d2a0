// Package catalog lists the training scenarios a room can target. The
// catalog is advisory: the map-storage service owns stage validity, so the
// lobby accepts unknown stage ids and only uses the catalog for listings
// and symbolic-id resolution.
package catalog

import (
	"context"
	"strconv"
)

// Stage is one training scenario. Key is the symbolic id clients may send
// in place of the numeric one.
type Stage struct {
	ID         int    `json:"id" bson:"id"`
	Key        string `json:"key" bson:"key"`
	Title      string `json:"title" bson:"title"`
	MinPlayers int    `json:"minPlayers" bson:"min_players"`
	MaxPlayers int    `json:"maxPlayers" bson:"max_players"`
}

type Catalog interface {
	List(ctx context.Context) ([]Stage, error)
	// Resolve accepts a numeric id or a symbolic key.
	Resolve(ctx context.Context, ref string) (Stage, bool)
}

// builtinStages is the shipped scenario set, used when no document store
// is configured.
var builtinStages = []Stage{
	{ID: 1, Key: "fire-drill", Title: "Fire Drill", MinPlayers: 2, MaxPlayers: 6},
	{ID: 2, Key: "road-crossing", Title: "Road Crossing", MinPlayers: 2, MaxPlayers: 4},
	{ID: 3, Key: "earthquake", Title: "Earthquake Response", MinPlayers: 2, MaxPlayers: 6},
	{ID: 4, Key: "first-aid", Title: "First Aid Basics", MinPlayers: 2, MaxPlayers: 4},
	{ID: 5, Key: "lab-safety", Title: "Lab Safety", MinPlayers: 2, MaxPlayers: 6},
}

type StaticCatalog struct {
	stages []Stage
}

func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{stages: builtinStages}
}

func (s *StaticCatalog) List(ctx context.Context) ([]Stage, error) {
	out := make([]Stage, len(s.stages))
	copy(out, s.stages)
	return out, nil
}

func (s *StaticCatalog) Resolve(ctx context.Context, ref string) (Stage, bool) {
	return resolveIn(s.stages, ref)
}

func resolveIn(stages []Stage, ref string) (Stage, bool) {
	if n, err := strconv.Atoi(ref); err == nil {
		for _, st := range stages {
			if st.ID == n {
				return st, true
			}
		}
		return Stage{}, false
	}
	for _, st := range stages {
		if st.Key == ref {
			return st, true
		}
	}
	return Stage{}, false
}
