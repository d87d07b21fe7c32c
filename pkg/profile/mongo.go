package profile

import (
	"context"
	"errors"
	"time"

	"zeptical/models"
	"zeptical/pkg/apperr"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const profileCollection = "userprofiles"

// ConnectMongo dials uri and returns the named database once the server answers a ping.
func ConnectMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client.Database(database), nil
}

// MongoRepository keeps one document per user in the userprofiles collection and
// edits lists in place with $push, positional $set and $pull.
type MongoRepository struct {
	db         *mongo.Database
	collection string
}

func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{db: db, collection: profileCollection}
}

func (r *MongoRepository) coll() *mongo.Collection {
	return r.db.Collection(r.collection)
}

// Migrate creates the unique userId index.
func (r *MongoRepository) Migrate(ctx context.Context) error {
	_, err := r.coll().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// onInsert is the $setOnInsert document for a new profile, minus the paths
// already written by the same update.
func onInsert(userID uint, now time.Time, skip models.Field) bson.M {
	doc := bson.M{"userId": userID, "createdAt": now}
	for _, f := range []models.Field{models.FieldSkill, models.FieldProject, models.FieldInternship, models.FieldAchievement} {
		if f != skip {
			doc[string(f)] = bson.A{}
		}
	}
	return doc
}

func (r *MongoRepository) Ensure(ctx context.Context, userID uint) error {
	now := time.Now().UTC()
	_, err := r.coll().UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{
			"$setOnInsert": onInsert(userID, now, ""),
			"$set":         bson.M{"updatedAt": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return persistence(err)
	}
	return nil
}

func (r *MongoRepository) Get(ctx context.Context, userID uint, fields ...models.Field) (*models.Profile, error) {
	opts := options.FindOne()
	if len(fields) > 0 {
		proj := bson.M{"userId": 1, "createdAt": 1, "updatedAt": 1}
		for _, f := range fields {
			if f.Valid() {
				proj[string(f)] = 1
			}
		}
		opts.SetProjection(proj)
	}
	var p models.Profile
	err := r.coll().FindOne(ctx, bson.M{"userId": userID}, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, persistence(err)
	}
	return &p, nil
}

// Walk calls fn for every profile document.
func (r *MongoRepository) Walk(ctx context.Context, fn func(*models.Profile) error) error {
	cur, err := r.coll().Find(ctx, bson.M{})
	if err != nil {
		return persistence(err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var p models.Profile
		if err := cur.Decode(&p); err != nil {
			return persistence(err)
		}
		if err := fn(&p); err != nil {
			return err
		}
	}
	if err := cur.Err(); err != nil {
		return persistence(err)
	}
	return nil
}

func (r *MongoRepository) ReplaceField(ctx context.Context, userID uint, field models.Field, value any) (*models.Profile, error) {
	if err := checkSingle(field); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	return r.findAndUpdate(ctx, bson.M{"userId": userID}, bson.M{
		"$set":         bson.M{string(field): value, "updatedAt": now},
		"$setOnInsert": onInsert(userID, now, field),
	}, true, field)
}

func (r *MongoRepository) AppendItem(ctx context.Context, userID uint, list models.Field, item models.Item) (*models.Profile, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	if item.ItemID() == "" {
		item.SetItemID(primitive.NewObjectID().Hex())
	}
	now := time.Now().UTC()
	return r.findAndUpdate(ctx, bson.M{"userId": userID}, bson.M{
		"$push":        bson.M{string(list): item},
		"$set":         bson.M{"updatedAt": now},
		"$setOnInsert": onInsert(userID, now, list),
	}, true, list)
}

func (r *MongoRepository) UpdateItem(ctx context.Context, userID uint, list models.Field, item models.Item) (*models.Profile, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	filter := bson.M{"userId": userID, string(list) + "._id": item.ItemID()}
	return r.findAndUpdate(ctx, filter, bson.M{
		"$set": bson.M{string(list) + ".$": item, "updatedAt": time.Now().UTC()},
	}, false, list)
}

func (r *MongoRepository) RemoveItem(ctx context.Context, userID uint, list models.Field, itemID string) (*models.Profile, error) {
	if err := checkList(list); err != nil {
		return nil, err
	}
	filter := bson.M{"userId": userID, string(list) + "._id": itemID}
	return r.findAndUpdate(ctx, filter, bson.M{
		"$pull": bson.M{string(list): bson.M{"_id": itemID}},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}, false, list)
}

func (r *MongoRepository) findAndUpdate(ctx context.Context, filter, update bson.M, upsert bool, list models.Field) (*models.Profile, error) {
	opts := options.FindOneAndUpdate().
		SetUpsert(upsert).
		SetReturnDocument(options.After)
	var p models.Profile
	err := r.coll().FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, itemNotFound(list)
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperr.Wrap(err, apperr.KindConflict, "Profile was created concurrently. Please try again")
		}
		return nil, persistence(err)
	}
	return &p, nil
}
