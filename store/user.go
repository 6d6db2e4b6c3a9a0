package store

import (
	"context"
	"time"

	"github.com/AbiWebAngel/StoryBridgeBlog-sub001/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func (db *DB) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) UserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	err := db.Users().FindOne(ctx, bson.M{"_id": id}).Decode(&u)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (db *DB) CreateUser(ctx context.Context, user *models.User) (primitive.ObjectID, error) {
	res, err := db.Users().InsertOne(ctx, user, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	cur, err := db.Users().Find(ctx, bson.M{}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var users []models.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// EnsureSuperAdmin finds or seeds the designated super-admin account. The
// account always carries the admin role; the guard refuses every attempt to
// change it afterwards.
func (db *DB) EnsureSuperAdmin(ctx context.Context, email, passwordHash string) (*models.User, error) {
	user, err := db.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if user.Role != models.RoleAdmin {
			if err := db.UpdateUserRole(ctx, user.ID, models.RoleAdmin); err != nil {
				return nil, err
			}
			user.Role = models.RoleAdmin
		}
		return user, nil
	}
	user = &models.User{
		Email:     email,
		Password:  passwordHash,
		Role:      models.RoleAdmin,
		CreatedAt: time.Now(),
	}
	id, err := db.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.ID = id
	return user, nil
}

// UpdateUserRole persists an allowed role change on the user record. Callers
// must have passed the guard first.
func (db *DB) UpdateUserRole(ctx context.Context, id primitive.ObjectID, role string) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"role": role}})
	return err
}

func (db *DB) SetUserDisabled(ctx context.Context, id primitive.ObjectID, disabled bool) error {
	_, err := db.Users().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"disabled": disabled}})
	return err
}
