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

// NotificationRepo owns the notification store: a collection addressed
// independently from the conversation store.
type NotificationRepo struct {
	col         *mongo.Collection
	settingsCol *mongo.Collection
}

func NewNotificationRepo(db *mongo.Database) *NotificationRepo {
	r := &NotificationRepo{
		col:         db.Collection("notifications"),
		settingsCol: db.Collection("notification_settings"),
	}
	_, _ = r.col.Indexes().CreateOne(context.Background(), mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return r
}

// activeFilter excludes expired records at read time; they are never
// actively deleted.
func activeFilter(userID string, now time.Time) bson.M {
	return bson.M{
		"user_id": userID,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": bson.M{"$gt": now}},
		},
	}
}

func (r *NotificationRepo) InsertNotification(ctx context.Context, n *models.Notification) error {
	_, err := r.col.InsertOne(ctx, n)
	return err
}

func (r *NotificationRepo) NotificationsForUser(ctx context.Context, userID string, limit, skip int64, now time.Time) ([]*models.Notification, error) {
	cur, err := r.col.Find(ctx, activeFilter(userID, now), options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(skip))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Notification
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id string) error {
	_, err := r.col.UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_read": true}})
	return err
}

func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID string) error {
	_, err := r.col.UpdateMany(ctx, bson.M{"user_id": userID, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}})
	return err
}

func (r *NotificationRepo) CountUnread(ctx context.Context, userID string, now time.Time) (int64, error) {
	filter := activeFilter(userID, now)
	filter["is_read"] = false
	return r.col.CountDocuments(ctx, filter)
}

func (r *NotificationRepo) SettingsFor(ctx context.Context, userID string) (*models.NotificationSettings, error) {
	var s models.NotificationSettings
	if err := r.settingsCol.FindOne(ctx, bson.M{"_id": userID}).Decode(&s); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("settings for user %s", userID)
		}
		return nil, err
	}
	return &s, nil
}

func (r *NotificationRepo) UpsertSettings(ctx context.Context, s *models.NotificationSettings) error {
	update := bson.M{"$set": bson.M{
		"friend_activity":   s.FriendActivity,
		"messages":          s.Messages,
		"orders":            s.Orders,
		"pantry":            s.Pantry,
		"recipes":           s.Recipes,
		"boxes":             s.Boxes,
		"system":            s.System,
		"push_tokens":       s.PushTokens,
		"email_frequency":   s.EmailFrequency,
		"quiet_hours_start": s.QuietHoursStart,
		"quiet_hours_end":   s.QuietHoursEnd,
		"timezone":          s.Timezone,
		"updated_at":        s.UpdatedAt,
	}}
	_, err := r.settingsCol.UpdateByID(ctx, s.UserID, update, options.Update().SetUpsert(true))
	return err
}
