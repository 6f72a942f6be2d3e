package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/funnelboard/funnelboard-golang/internal/models"
)

const CollectionFunnels = "funnels"

// funnelDoc pairs the document body with the Mongo-owned _id; the
// in-memory model keeps its id as a plain string.
type funnelDoc struct {
	ID            bson.ObjectID `bson:"_id,omitempty"`
	models.Funnel `bson:",inline"`
}

// MongoStore implements FunnelStore on a MongoDB collection.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore wires the store to the funnels collection.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{collection: client.Database(database).Collection(CollectionFunnels)}
}

func (s *MongoStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Funnel, error) {
	filter := bson.D{{Key: "ownerId", Value: ownerID}}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})

	cursor, err := s.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	docs := []funnelDoc{}
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	funnels := make([]models.Funnel, len(docs))
	for i, doc := range docs {
		doc.Funnel.ID = doc.ID.Hex()
		funnels[i] = doc.Funnel
	}
	return funnels, nil
}

func (s *MongoStore) Create(ctx context.Context, funnel models.Funnel) (string, error) {
	doc := funnelDoc{Funnel: NormalizeForStorage(funnel)}
	doc.ID = bson.NewObjectID()

	if _, err := s.collection.InsertOne(ctx, doc); err != nil {
		return "", err
	}
	return doc.ID.Hex(), nil
}

func (s *MongoStore) Update(ctx context.Context, id string, funnel models.Funnel) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	doc := funnelDoc{ID: oid, Funnel: NormalizeForStorage(funnel)}
	result, err := s.collection.ReplaceOne(ctx, bson.D{{Key: "_id", Value: oid}}, doc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := s.collection.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*models.Funnel, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	doc := funnelDoc{}
	err = s.collection.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	doc.Funnel.ID = doc.ID.Hex()
	return &doc.Funnel, nil
}
