package store

import (
	"context"
	"errors"
	"time"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// errAlreadyCounted aborts the read transaction when the receipt already
// exists. A duplicate-key write error has already aborted the server-side
// transaction, so the callback must surface an error rather than return
// normally: committing an aborted transaction fails with a transient-labeled
// NoSuchTransaction, which would make WithTransaction retry the duplicate
// forever.
var errAlreadyCounted = errors.New("read already counted")

func dupToAlreadyCounted(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return errAlreadyCounted
	}
	return err
}

// translateRecordRead turns the WithTransaction outcome into the handler
// contract: a duplicate receipt is a success with no increment.
func translateRecordRead(result interface{}, err error) (bool, error) {
	if err != nil {
		if errors.Is(err, errAlreadyCounted) {
			return false, nil
		}
		return false, err
	}
	counted, _ := result.(bool)
	return counted, nil
}

// RecordRead counts one read of an article for the given reader hash, at most
// once per distinct reader. The uniqueness insert and the aggregate counter
// increment run in a single transaction; a repeat read aborts the transaction
// and reports counted=false without touching the counter.
func (db *DB) RecordRead(ctx context.Context, articleID primitive.ObjectID, readerHash string) (counted bool, err error) {
	session, err := db.Client.StartSession()
	if err != nil {
		return false, err
	}
	defer session.EndSession(ctx)

	result, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		receipt := models.ReadReceipt{
			ID:         articleID.Hex() + ":" + readerHash,
			ArticleID:  articleID,
			HashPrefix: utils.HashPrefix(readerHash),
			CreatedAt:  time.Now(),
		}
		if _, err := db.ArticleReads().InsertOne(sc, receipt); err != nil {
			return nil, dupToAlreadyCounted(err)
		}
		if _, err := db.Articles().UpdateOne(sc, bson.M{"_id": articleID}, bson.M{"$inc": bson.M{"readCount": 1}}); err != nil {
			return nil, err
		}
		return true, nil
	})
	return translateRecordRead(result, err)
}
