package product

import (
	"context"
	"strings"
	"time"

	"comet-be/internal/apperr"
	"comet-be/internal/auth"
	"comet-be/internal/logger"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Service interface {
	Get(ctx context.Context, productID string) (*Detail, error)
	Update(ctx context.Context, productID string, input UpdateInput) (*Detail, error)
	Delete(ctx context.Context, productID string) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Get(ctx context.Context, productID string) (*Detail, error) {
	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperr.Validation("Invalid product id")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err)
	}

	return s.populate(ctx, p)
}

func (s *service) Update(ctx context.Context, productID string, input UpdateInput) (*Detail, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateProduct"),
		zap.String("product_id", productID),
	)

	if _, ok := auth.UserIDFromContext(ctx); !ok {
		return nil, apperr.Unauthorized("Unauthorized")
	}

	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, apperr.Validation("Invalid product id")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.wrapLookup(err)
	}

	if err := validateUpdate(input); err != nil {
		return nil, err
	}

	requested, err := parseObjectIDs(input.Collections)
	if err != nil {
		return nil, apperr.Validation("Invalid collection id")
	}

	added, removed := diffMembership(p.Collections, requested)

	log.Debug("collection membership diff",
		zap.Int("added", len(added)),
		zap.Int("removed", len(removed)),
	)

	if err := s.repo.AddToCollections(ctx, p.ID, added); err != nil {
		log.Error("failed adding product to collections", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPersistence, "update collection membership", err)
	}
	if err := s.repo.RemoveFromCollections(ctx, p.ID, removed); err != nil {
		log.Error("failed removing product from collections", zap.Error(err))
		return nil, apperr.Wrap(apperr.KindPersistence, "update collection membership", err)
	}

	p.Title = input.Title
	p.Description = input.Description
	p.Media = input.Media
	p.Category = input.Category
	p.Collections = requested
	p.Tags = input.Tags
	p.Sizes = input.Sizes
	p.Price = input.Price
	p.Expense = input.Expense
	p.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, p.ID, p); err != nil {
		log.Error("failed updating product", zap.Error(err))
		return nil, s.wrapLookup(err)
	}

	log.Info("product updated")

	return s.populate(ctx, p)
}

func (s *service) Delete(ctx context.Context, productID string) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "DeleteProduct"),
		zap.String("product_id", productID),
	)

	if _, ok := auth.UserIDFromContext(ctx); !ok {
		return apperr.Unauthorized("Unauthorized")
	}

	id, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return apperr.Validation("Invalid product id")
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return s.wrapLookup(err)
	}

	if err := s.repo.Delete(ctx, p.ID); err != nil {
		log.Error("failed deleting product", zap.Error(err))
		return s.wrapLookup(err)
	}

	if err := s.repo.RemoveFromCollections(ctx, p.ID, p.Collections); err != nil {
		// product is gone; membership cleanup is best-effort but loud
		log.Error("failed detaching deleted product from collections", zap.Error(err))
		return apperr.Wrap(apperr.KindPersistence, "detach product from collections", err)
	}

	log.Info("product deleted")
	return nil
}

func (s *service) populate(ctx context.Context, p *Product) (*Detail, error) {
	cols, err := s.repo.GetCollections(ctx, p.Collections)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, "load product collections", err)
	}
	return &Detail{Product: *p, Collections: cols}, nil
}

func (s *service) wrapLookup(err error) error {
	if err == ErrProductNotFound {
		return apperr.NotFound("Product not found")
	}
	return apperr.Wrap(apperr.KindPersistence, "product lookup", err)
}

func validateUpdate(input UpdateInput) error {
	if strings.TrimSpace(input.Title) == "" ||
		strings.TrimSpace(input.Description) == "" ||
		strings.TrimSpace(input.Category) == "" ||
		input.Price == 0 ||
		input.Expense == 0 {
		return apperr.Validation("Not enough data to create a new product")
	}

	if len(input.Media) == 0 {
		return apperr.Validation("Media must be a non-empty array")
	}
	for _, m := range input.Media {
		if strings.TrimSpace(m) == "" {
			return apperr.Validation("Each media item must be a non-empty string")
		}
	}

	return nil
}

func parseObjectIDs(hex []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hex))
	for _, h := range hex {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// diffMembership computes which collections gained or lost this product.
func diffMembership(stored, requested []primitive.ObjectID) (added, removed []primitive.ObjectID) {
	have := make(map[primitive.ObjectID]bool, len(stored))
	for _, id := range stored {
		have[id] = true
	}
	want := make(map[primitive.ObjectID]bool, len(requested))
	for _, id := range requested {
		want[id] = true
	}

	for _, id := range requested {
		if !have[id] {
			added = append(added, id)
		}
	}
	for _, id := range stored {
		if !want[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
