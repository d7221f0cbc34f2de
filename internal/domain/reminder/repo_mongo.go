package reminder

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type repoMongo struct{ coll *mongo.Collection }

// NewRepoMongo returns a Repository backed by MongoDB. The completion
// patch is a single aggregation-pipeline update, so the slot flag changes
// within one document-level atomic write.
func NewRepoMongo(db *mongo.Database) Repository {
	return &repoMongo{coll: db.Collection("reminders")}
}

func (r *repoMongo) Create(ctx context.Context, rem *Reminder) error {
	if rem.ID == "" {
		rem.ID = primitive.NewObjectID().Hex()
	}
	_, err := r.coll.InsertOne(ctx, rem)
	return err
}

func (r *repoMongo) GetByID(ctx context.Context, id string) (*Reminder, error) {
	var rem Reminder
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rem)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rem.RefreshCompleted()
	return &rem, nil
}

func (r *repoMongo) ListByOwner(ctx context.Context, owner string) ([]*Reminder, error) {
	return r.find(ctx, bson.M{"username": owner})
}

func (r *repoMongo) ListAll(ctx context.Context) ([]*Reminder, error) {
	return r.find(ctx, bson.M{})
}

func (r *repoMongo) find(ctx context.Context, filter bson.M) ([]*Reminder, error) {
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reminders := []*Reminder{}
	for cursor.Next(ctx) {
		var rem Reminder
		if err := cursor.Decode(&rem); err != nil {
			return nil, err
		}
		rem.RefreshCompleted()
		reminders = append(reminders, &rem)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return reminders, nil
}

// completionPipeline rewrites the times array server-side, flipping the
// matching slot's flag for the given day and leaving every other slot
// untouched. Running as a pipeline update keeps the whole rewrite inside
// one document-level atomic operation.
func completionPipeline(timeStr, day string) mongo.Pipeline {
	return mongo.Pipeline{
		bson.D{{Key: "$set", Value: bson.M{
			"times": bson.M{"$map": bson.M{
				"input": "$times",
				"as":    "slot",
				"in": bson.M{"$cond": bson.A{
					bson.M{"$eq": bson.A{"$$slot.time", timeStr}},
					bson.M{"$mergeObjects": bson.A{
						"$$slot",
						bson.M{"completed": bson.M{"$mergeObjects": bson.A{
							bson.M{"$ifNull": bson.A{"$$slot.completed", bson.M{}}},
							bson.M{day: true},
						}}},
					}},
					"$$slot",
				}},
			}},
		}}},
	}
}

func (r *repoMongo) MarkSlotCompleted(ctx context.Context, id, timeStr, day string) (*PatchResult, error) {
	filter := bson.M{"_id": id, "times.time": timeStr}
	res, err := r.coll.UpdateOne(ctx, filter, completionPipeline(timeStr, day))
	if err != nil {
		return nil, err
	}

	if res.MatchedCount == 0 {
		// Distinguish a missing reminder from a missing slot.
		if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Err(); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return nil, ErrNotFound
			}
			return nil, err
		}
		return nil, ErrSlotNotFound
	}
	if res.ModifiedCount == 0 {
		return nil, ErrNotModified
	}

	// Completion flags are monotonic, so reading the aggregate after the
	// write cannot observe a state that misses our own update.
	rem, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &PatchResult{Modified: true, AllSlotsCompleted: rem.AllSlotsCompleted(day)}, nil
}

func (r *repoMongo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
