package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Keoroanthony/customer-gateway/internal/models"
)

const CustomersCollection = "customers"

type customerDocument struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Phone string             `bson:"phone"`
	Photo string             `bson:"photo"`
}

func (d customerDocument) model() models.Customer {
	return models.Customer{
		ID:    d.ID.Hex(),
		Name:  d.Name,
		Phone: d.Phone,
		Photo: d.Photo,
	}
}

// MongoStore keeps customers in the "customers" collection with ObjectID
// keys, rendered as hex strings.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client:     client,
		collection: client.Database(database).Collection(CustomersCollection),
	}
}

func (s *MongoStore) List(ctx context.Context, skip, limit int64) ([]models.Customer, error) {
	opts := options.Find().SetSkip(skip)
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find customers: %w", err)
	}
	defer cursor.Close(ctx)

	customers := []models.Customer{}
	for cursor.Next(ctx) {
		var doc customerDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode customer: %w", err)
		}
		customers = append(customers, doc.model())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	return customers, nil
}

func (s *MongoStore) Insert(ctx context.Context, c models.Customer) (models.Customer, error) {
	doc := customerDocument{Name: c.Name, Phone: c.Phone, Photo: c.Photo}

	res, err := s.collection.InsertOne(ctx, doc)
	if err != nil {
		return models.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return models.Customer{}, fmt.Errorf("insert customer: unexpected id type %T", res.InsertedID)
	}
	return s.Get(ctx, oid.Hex())
}

func (s *MongoStore) Get(ctx context.Context, id string) (models.Customer, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return models.Customer{}, err
	}

	var doc customerDocument
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Customer{}, ErrNotFound
	}
	if err != nil {
		return models.Customer{}, fmt.Errorf("find customer %s: %w", id, err)
	}
	return doc.model(), nil
}

func (s *MongoStore) Update(ctx context.Context, id string, u models.CustomerUpdate) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := s.collection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": u.Fields()})
	if err != nil {
		return fmt.Errorf("update customer %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}

	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping runs the admin ping command against the primary.
func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return oid, nil
}
