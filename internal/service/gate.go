package service

import (
	"context"

	"github.com/atinyakov/imagerepo/internal/models"
)

// AuthorizeOwnerAction allows an owner-only action when requesterID owns the resource.
func AuthorizeOwnerAction(resourceOwnerID, requesterID int64) error {
	if resourceOwnerID != requesterID {
		return models.ErrUnauthorized
	}
	return nil
}

// ImageOwnerLookup resolves the owner of an image.
type ImageOwnerLookup interface {
	GetImageOwner(ctx context.Context, id int64) (int64, error)
}

// Gate checks image ownership before owner-only image operations reach storage.
type Gate struct {
	images ImageOwnerLookup
}

// NewGate constructs a Gate that looks owners up through images.
func NewGate(images ImageOwnerLookup) *Gate {
	return &Gate{images: images}
}

// AuthorizeImageOwner returns nil if requesterID owns imageID,
// models.ErrNotFound if the image does not exist and models.ErrUnauthorized otherwise.
func (g *Gate) AuthorizeImageOwner(ctx context.Context, imageID, requesterID int64) error {
	ownerID, err := g.images.GetImageOwner(ctx, imageID)
	if err != nil {
		return err
	}
	return AuthorizeOwnerAction(ownerID, requesterID)
}
