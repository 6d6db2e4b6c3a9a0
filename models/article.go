package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Article statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

type Article struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID   primitive.ObjectID `bson:"authorId" json:"authorId"`
	Title      string             `bson:"title" json:"title"`
	Slug       string             `bson:"slug" json:"slug"`
	Status     string             `bson:"status" json:"status"` // draft or published
	Body       Node               `bson:"body" json:"body"`
	CoverImage string             `bson:"coverImage,omitempty" json:"coverImage,omitempty"`
	// UploadedAssets is bookkeeping for uploads made while editing. The live
	// reference set is always recomputed from Body and CoverImage, never
	// trusted from this list.
	UploadedAssets []string   `bson:"uploadedAssets,omitempty" json:"uploadedAssets,omitempty"`
	ReadCount      int64      `bson:"readCount" json:"readCount"`
	CreatedAt      time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time  `bson:"updatedAt" json:"updatedAt"`
	PublishedAt    *time.Time `bson:"publishedAt,omitempty" json:"publishedAt,omitempty"`
}

// LiveRefs is the set of asset locators the article currently references:
// every image in the body plus the cover image.
func (a *Article) LiveRefs() map[string]struct{} {
	refs := a.Body.AssetRefs()
	if a.CoverImage != "" {
		refs[a.CoverImage] = struct{}{}
	}
	return refs
}
