package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReadReceipt marks that one reader identity has been counted for an article.
// The _id is "<articleID>:<readerHash>", which makes the insert the uniqueness
// check. Only a truncated hash prefix is kept for audit display; the raw
// reader identity is never stored.
type ReadReceipt struct {
	ID         string             `bson:"_id" json:"-"`
	ArticleID  primitive.ObjectID `bson:"articleId" json:"articleId"`
	HashPrefix string             `bson:"hashPrefix" json:"hashPrefix"`
	CreatedAt  time.Time          `bson:"createdAt" json:"createdAt"`
}
