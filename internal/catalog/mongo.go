package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const opTimeout = 5 * time.Second

// MongoCatalog reads stages from the game's document database, so the
// lobby lists the same scenarios the map-storage service manages.
type MongoCatalog struct {
	collection *mongo.Collection
}

// Connect dials the document database and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	log.Info().Str("module", "catalog").Msg("connected to mongo")
	return client, nil
}

func NewMongoCatalog(client *mongo.Client, database string) *MongoCatalog {
	return &MongoCatalog{collection: client.Database(database).Collection("stages")}
}

func (m *MongoCatalog) List(ctx context.Context) ([]Stage, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	cur, err := m.collection.Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"id": 1}))
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer cur.Close(ctx)

	var stages []Stage
	if err := cur.All(ctx, &stages); err != nil {
		return nil, fmt.Errorf("decode stages: %w", err)
	}
	return stages, nil
}

func (m *MongoCatalog) Resolve(ctx context.Context, ref string) (Stage, bool) {
	stages, err := m.List(ctx)
	if err != nil {
		log.Error().Err(err).Str("module", "catalog").Msg("resolve fell back to miss")
		return Stage{}, false
	}
	return resolveIn(stages, ref)
}

// Seed inserts the builtin stages when the collection is empty, so a fresh
// database still serves a scenario list.
func (m *MongoCatalog) Seed(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	n, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("count stages: %w", err)
	}
	if n > 0 {
		return nil
	}
	docs := make([]interface{}, len(builtinStages))
	for i, st := range builtinStages {
		docs[i] = st
	}
	if _, err := m.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed stages: %w", err)
	}
	log.Info().Str("module", "catalog").Int("stages", len(docs)).Msg("seeded stage catalog")
	return nil
}
