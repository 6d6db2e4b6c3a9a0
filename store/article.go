package store

import (
	"context"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) InsertArticle(ctx context.Context, art *models.Article) (primitive.ObjectID, error) {
	res, err := db.Articles().InsertOne(ctx, art, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ArticleByID(ctx context.Context, id primitive.ObjectID) (*models.Article, error) {
	var art models.Article
	err := db.Articles().FindOne(ctx, bson.M{"_id": id}).Decode(&art)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &art, nil
}

// ListArticles returns articles matching filter, newest first. The caller
// builds the filter from the requesting principal's visibility.
func (db *DB) ListArticles(ctx context.Context, filter bson.M) ([]models.Article, error) {
	cur, err := db.Articles().Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var articles []models.Article
	if err := cur.All(ctx, &articles); err != nil {
		return nil, err
	}
	return articles, nil
}

func (db *DB) UpdateArticle(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	_, err := db.Articles().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// AddUploadedAsset records a fresh upload against the article. $addToSet keeps
// the bookkeeping list a set.
func (db *DB) AddUploadedAsset(ctx context.Context, id primitive.ObjectID, ref string) error {
	_, err := db.Articles().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"uploadedAssets": ref}})
	return err
}

func (db *DB) SetUploadedAssets(ctx context.Context, id primitive.ObjectID, refs []string) error {
	_, err := db.Articles().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"uploadedAssets": refs}})
	return err
}

// DeleteArticle removes the article record. Asset cleanup and the read-receipt
// subcollection are handled by the caller before and after this call.
func (db *DB) DeleteArticle(ctx context.Context, id primitive.ObjectID) error {
	res, err := db.Articles().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// DeleteArticleReads drops every read receipt belonging to the article.
func (db *DB) DeleteArticleReads(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.ArticleReads().DeleteMany(ctx, bson.M{"articleId": id})
	return err
}
