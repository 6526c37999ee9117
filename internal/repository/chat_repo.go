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

// ChatRepo owns the conversation-store collections: conversations, messages,
// message_status and message_reactions.
type ChatRepo struct {
	convCol     *mongo.Collection
	msgCol      *mongo.Collection
	statusCol   *mongo.Collection
	reactionCol *mongo.Collection
}

func NewChatRepo(db *mongo.Database) *ChatRepo {
	r := &ChatRepo{
		convCol:     db.Collection("conversations"),
		msgCol:      db.Collection("messages"),
		statusCol:   db.Collection("message_status"),
		reactionCol: db.Collection("message_reactions"),
	}
	r.ensureIndexes()
	return r
}

func (r *ChatRepo) ensureIndexes() {
	ctx := context.Background()
	_, _ = r.convCol.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants", Value: 1}, {Key: "last_activity", Value: -1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "participants", Value: 1}}},
	})
	_, _ = r.msgCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: 1}},
	})
	_, _ = r.statusCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	_, _ = r.reactionCol.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "message_id", Value: 1}, {Key: "user_id", Value: 1}, {Key: "emoji", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
}

func (r *ChatRepo) InsertConversation(ctx context.Context, c *models.Conversation) error {
	_, err := r.convCol.InsertOne(ctx, c)
	return err
}

func (r *ChatRepo) ConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.convCol.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("conversation %s", id)
		}
		return nil, err
	}
	return &c, nil
}

// FindDirectConversation looks up the direct conversation for an unordered
// participant pair, if one exists.
func (r *ChatRepo) FindDirectConversation(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	filter := bson.M{
		"type":         models.ConversationDirect,
		"participants": bson.M{"$all": []string{userA, userB}, "$size": 2},
	}
	var c models.Conversation
	if err := r.convCol.FindOne(ctx, filter).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("direct conversation for %s/%s", userA, userB)
		}
		return nil, err
	}
	return &c, nil
}

func (r *ChatRepo) ConversationsForUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	filter := bson.M{"participants": userID, "is_active": true}
	cur, err := r.convCol.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "last_activity", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Conversation
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetLastMessage refreshes the denormalized preview snapshot. Concurrent
// senders race here last-writer-wins; the messages collection stays
// authoritative.
func (r *ChatRepo) SetLastMessage(ctx context.Context, convID string, msg *models.Message) error {
	_, err := r.convCol.UpdateByID(ctx, convID, bson.M{"$set": bson.M{
		"last_message":  msg,
		"last_activity": msg.CreatedAt,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

func (r *ChatRepo) InsertMessage(ctx context.Context, m *models.Message) error {
	_, err := r.msgCol.InsertOne(ctx, m)
	return err
}

func (r *ChatRepo) MessageByID(ctx context.Context, id string) (*models.Message, error) {
	var m models.Message
	if err := r.msgCol.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("message %s", id)
		}
		return nil, err
	}
	return &m, nil
}

// MessagesByConversation pages ascending by creation time so that re-issuing
// with skip+limit walks history without gaps or duplicates.
func (r *ChatRepo) MessagesByConversation(ctx context.Context, convID string, limit, skip int64) ([]*models.Message, error) {
	cur, err := r.msgCol.Find(ctx, bson.M{"conversation_id": convID}, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(limit).
		SetSkip(skip))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.Message
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ChatRepo) MarkEdited(ctx context.Context, id, content string, at time.Time) error {
	res, err := r.msgCol.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"content":    content,
		"edited":     true,
		"edited_at":  at,
		"updated_at": at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.NotFoundf("message %s", id)
	}
	return nil
}

func (r *ChatRepo) StatusFor(ctx context.Context, messageID, userID string) (*models.MessageStatusRecord, error) {
	var rec models.MessageStatusRecord
	err := r.statusCol.FindOne(ctx, bson.M{"message_id": messageID, "user_id": userID}).Decode(&rec)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, apperr.NotFoundf("status for message %s user %s", messageID, userID)
		}
		return nil, err
	}
	return &rec, nil
}

func (r *ChatRepo) UpsertStatus(ctx context.Context, rec *models.MessageStatusRecord) error {
	filter := bson.M{"message_id": rec.MessageID, "user_id": rec.UserID}
	update := bson.M{"$set": bson.M{"status": rec.Status, "timestamp": rec.Timestamp}}
	_, err := r.statusCol.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *ChatRepo) InsertReaction(ctx context.Context, reaction *models.MessageReaction) error {
	filter := bson.M{
		"message_id": reaction.MessageID,
		"user_id":    reaction.UserID,
		"emoji":      reaction.Emoji,
	}
	update := bson.M{"$setOnInsert": reaction}
	_, err := r.reactionCol.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *ChatRepo) DeleteReaction(ctx context.Context, messageID, userID, emoji string) error {
	_, err := r.reactionCol.DeleteOne(ctx, bson.M{
		"message_id": messageID,
		"user_id":    userID,
		"emoji":      emoji,
	})
	return err
}

func (r *ChatRepo) ReactionsForMessage(ctx context.Context, messageID string) ([]*models.MessageReaction, error) {
	cur, err := r.reactionCol.Find(ctx, bson.M{"message_id": messageID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []*models.MessageReaction
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
