package product

import (
	"context"
	"errors"
	"time"

	"comet-be/internal/db"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

var ErrProductNotFound = errors.New("product not found")

type Repository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*Product, error)
	GetCollections(ctx context.Context, ids []primitive.ObjectID) ([]Collection, error)
	Update(ctx context.Context, id primitive.ObjectID, p *Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddToCollections(ctx context.Context, productID primitive.ObjectID, collectionIDs []primitive.ObjectID) error
	RemoveFromCollections(ctx context.Context, productID primitive.ObjectID, collectionIDs []primitive.ObjectID) error
}

type repository struct {
	products    *mongo.Collection
	collections *mongo.Collection
}

func NewRepository(m *db.Mongo) Repository {
	return &repository{
		products:    m.Database.Collection(db.CollProducts),
		collections: m.Database.Collection(db.CollCollections),
	}
}

func (r *repository) GetByID(ctx context.Context, id primitive.ObjectID) (*Product, error) {
	var p Product
	err := r.products.FindOne(ctx, bson.M{"_id": id}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *repository) GetCollections(ctx context.Context, ids []primitive.ObjectID) ([]Collection, error) {
	if len(ids) == 0 {
		return []Collection{}, nil
	}

	cursor, err := r.collections.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []Collection
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Update(ctx context.Context, id primitive.ObjectID, p *Product) error {
	p.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"title":       p.Title,
		"description": p.Description,
		"media":       p.Media,
		"category":    p.Category,
		"collections": p.Collections,
		"tags":        p.Tags,
		"sizes":       p.Sizes,
		"price":       p.Price,
		"expense":     p.Expense,
		"updatedAt":   p.UpdatedAt,
	}}

	res, err := r.products.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *repository) AddToCollections(ctx context.Context, productID primitive.ObjectID, collectionIDs []primitive.ObjectID) error {
	if len(collectionIDs) == 0 {
		return nil
	}
	_, err := r.collections.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": collectionIDs}},
		bson.M{"$push": bson.M{"products": productID}},
	)
	return err
}

func (r *repository) RemoveFromCollections(ctx context.Context, productID primitive.ObjectID, collectionIDs []primitive.ObjectID) error {
	if len(collectionIDs) == 0 {
		return nil
	}
	_, err := r.collections.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": collectionIDs}},
		bson.M{"$pull": bson.M{"products": productID}},
	)
	return err
}
