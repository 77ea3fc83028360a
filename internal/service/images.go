package service

import (
	"context"

	"github.com/atinyakov/imagerepo/internal/models"
)

// ImageRepository defines the persistence operations needed by the ImageService.
type ImageRepository interface {
	ImageOwnerLookup
	CreateImage(ctx context.Context, draft *models.ImageDraft) (*models.Image, error)
	UpdateImageInfo(ctx context.Context, img *models.Image) error
	DeleteImage(ctx context.Context, id int64) error
	GetImage(ctx context.Context, id, requesterID int64, full bool) (*models.Image, error)
	SearchImageByTag(ctx context.Context, tags models.TagList, requesterID int64) ([]models.Image, error)
}

// ShareRepository defines the persistence operations for image grants.
type ShareRepository interface {
	ShareImage(ctx context.Context, imageID, userID int64) error
	UnshareImage(ctx context.Context, imageID, userID int64) error
}

// ImageService implements upload, metadata maintenance, retrieval and sharing of images.
// Mutations other than upload are limited to the image owner.
type ImageService struct {
	images ImageRepository
	shares ShareRepository
	gate   *Gate
}

// NewImageService constructs an ImageService.
func NewImageService(images ImageRepository, shares ShareRepository) *ImageService {
	return &ImageService{images: images, shares: shares, gate: NewGate(images)}
}

// Create stores a new image owned by draft.OwnerID.
func (s *ImageService) Create(ctx context.Context, draft *models.ImageDraft) (*models.Image, error) {
	if draft.OwnerID == 0 {
		return nil, models.ErrUnauthorized
	}
	if len(draft.Content) == 0 {
		return nil, models.Invalid("image", "content is empty")
	}
	if draft.MimeType == "" {
		return nil, models.Invalid("imageType", "must not be empty")
	}
	draft.Tags = draft.Tags.Normalize()
	return s.images.CreateImage(ctx, draft)
}

// UpdateInfo changes the descriptive fields of img. img.Revision must match the stored revision.
func (s *ImageService) UpdateInfo(ctx context.Context, requesterID int64, img *models.Image) error {
	if err := s.gate.AuthorizeImageOwner(ctx, img.ID, requesterID); err != nil {
		return err
	}
	img.Tags = img.Tags.Normalize()
	return s.images.UpdateImageInfo(ctx, img)
}

// Delete removes image id.
func (s *ImageService) Delete(ctx context.Context, requesterID, id int64) error {
	if err := s.gate.AuthorizeImageOwner(ctx, id, requesterID); err != nil {
		return err
	}
	return s.images.DeleteImage(ctx, id)
}

// Get returns image id with its full content or thumbnail, if requesterID may see it.
func (s *ImageService) Get(ctx context.Context, requesterID, id int64, full bool) (*models.Image, error) {
	return s.images.GetImage(ctx, id, requesterID, full)
}

// SearchByTag returns the images visible to requesterID carrying any of tags.
func (s *ImageService) SearchByTag(ctx context.Context, requesterID int64, tags models.TagList) ([]models.Image, error) {
	tags = tags.Normalize()
	if len(tags) == 0 {
		return nil, models.Invalid("tags", "at least one tag is required")
	}
	return s.images.SearchImageByTag(ctx, tags, requesterID)
}

// Share grants userID read access to imageID.
func (s *ImageService) Share(ctx context.Context, requesterID, imageID, userID int64) error {
	if err := s.gate.AuthorizeImageOwner(ctx, imageID, requesterID); err != nil {
		return err
	}
	return s.shares.ShareImage(ctx, imageID, userID)
}

// Unshare revokes userID's read access to imageID.
func (s *ImageService) Unshare(ctx context.Context, requesterID, imageID, userID int64) error {
	if err := s.gate.AuthorizeImageOwner(ctx, imageID, requesterID); err != nil {
		return err
	}
	return s.shares.UnshareImage(ctx, imageID, userID)
}
