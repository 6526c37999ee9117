package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mccartheney/food-loop-sub002/internal/apperr"
	"github.com/mccartheney/food-loop-sub002/internal/models"
)

// PresenceRepo owns the user_presence and typing_indicators collections.
// Both are continuously overwritten; nothing here is append-only.
type PresenceRepo struct {
	presenceCol *mongo.Collection
	typingCol   *mongo.Collection
}

func NewPresenceRepo(db *mongo.Database) *PresenceRepo {
	r := &PresenceRepo{
		presenceCol: db.Collection("user_presence"),
		typingCol:   db.Collection("typing_indicators"),
	}
	_, _ = r.typingCol.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys:    bson.D{{Key: "conversation_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return r
}

func (r *PresenceRepo) UpsertPresence(ctx context.Context, p *models.UserPresence) error {
	update := bson.M{"$set": bson.M{
		"is_online":      p.IsOnline,
		"last_seen":      p.LastSeen,
		"status":         p.Status,
		"current_device": p.CurrentDevice,
		"updated_at":     p.UpdatedAt,
	}}
	_, err := r.presenceCol.UpdateByID(ctx, p.UserID, update, options.Update().SetUpsert(true))
	return err
}

func (r *PresenceRepo) PresenceFor(ctx context.Context, userID string) (*models.UserPresence, error) {
	var p models.UserPresence
	if err := r.presenceCol.FindOne(ctx, bson.M{"_id": userID}).Decode(&p); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("presence for user %s", userID)
		}
		return nil, err
	}
	return &p, nil
}

func (r *PresenceRepo) UpsertTyping(ctx context.Context, convID, userID string, at time.Time) error {
	filter := bson.M{"conversation_id": convID, "user_id": userID}
	update := bson.M{"$set": bson.M{"is_typing": true, "last_typing": at}}
	_, err := r.typingCol.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

// DeleteTyping removes the row outright; stopping typing is a delete, not a
// flag flip.
func (r *PresenceRepo) DeleteTyping(ctx context.Context, convID, userID string) error {
	_, err := r.typingCol.DeleteOne(ctx, bson.M{"conversation_id": convID, "user_id": userID})
	return err
}

func (r *PresenceRepo) TypingByConversation(ctx context.Context, convID string) ([]*models.TypingIndicator, error) {
	cur, err := r.typingCol.Find(ctx, bson.M{"conversation_id": convID, "is_typing": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.TypingIndicator
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PresenceRepo) TypingByUser(ctx context.Context, userID string) ([]*models.TypingIndicator, error) {
	cur, err := r.typingCol.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.TypingIndicator
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PresenceRepo) DeleteTypingByUser(ctx context.Context, userID string) error {
	_, err := r.typingCol.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
