package mongodb

import (
	"context"
	"errors"
	"time"

	"github.com/goevery/realtime/internal/persistence"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type User struct {
	Id              string   `bson:"id"`
	Email           string   `bson:"email"`
	Username        string   `bson:"username"`
	FullName        string   `bson:"full_name"`
	ProfileImageUrl *string  `bson:"profile_image_url"`
	Followers       []string `bson:"followers"`
	Friends         []string `bson:"friends"`
}

type Notification struct {
	Id          string         `bson:"id"`
	RecipientId string         `bson:"recipient_id"`
	SenderId    string         `bson:"sender_id"`
	Type        string         `bson:"type"`
	Title       string         `bson:"title"`
	Message     string         `bson:"message"`
	Data        map[string]any `bson:"data"`
	CreateTime  time.Time      `bson:"created_at"`
	Read        bool           `bson:"read"`
	ReadTime    *time.Time     `bson:"read_at"`
}

func (n Notification) toRecord() persistence.Notification {
	return persistence.Notification{
		Id:          n.Id,
		RecipientId: n.RecipientId,
		SenderId:    n.SenderId,
		Type:        n.Type,
		Title:       n.Title,
		Message:     n.Message,
		Data:        n.Data,
		CreateTime:  n.CreateTime,
		Read:        n.Read,
		ReadTime:    n.ReadTime,
	}
}

type PersistenceEngine struct {
	users         *mongo.Collection
	notifications *mongo.Collection
	retention     time.Duration
}

// NewPersistenceEngine keeps notifications forever unless retention is positive,
// in which case Setup adds a TTL index expiring them retention after creation.
func NewPersistenceEngine(client *mongo.Client, databaseName string, retention time.Duration) *PersistenceEngine {
	database := client.Database(databaseName)

	return &PersistenceEngine{
		users:         database.Collection("users"),
		notifications: database.Collection("notifications"),
		retention:     retention,
	}
}

// Setup creates the notification indexes. User indexes belong to the CRUD backend.
func (e *PersistenceEngine) Setup(ctx context.Context) error {
	_, err := e.notifications.Indexes().CreateMany(ctx, indexModels(e.retention))

	return err
}

func indexModels(retention time.Duration) []mongo.IndexModel {
	idIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	recipientIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "recipient_id", Value: 1},
			{Key: "read", Value: 1},
			{Key: "created_at", Value: -1},
		},
	}

	models := []mongo.IndexModel{idIndexModel, recipientIndexModel}

	if seconds := int32(retention / time.Second); seconds > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(seconds),
		})
	}

	return models
}

func (e *PersistenceEngine) FindUserIdByEmail(ctx context.Context, email string) (string, error) {
	opts := options.FindOne().SetProjection(bson.D{{Key: "id", Value: 1}})

	var user User
	err := e.users.FindOne(ctx, bson.M{"email": email, "is_active": bson.M{"$ne": false}}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", persistence.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}

	return user.Id, nil
}

// GetSocialGraph returns the followers and friends of userId, deduplicated.
func (e *PersistenceEngine) GetSocialGraph(ctx context.Context, userId string) ([]string, error) {
	opts := options.FindOne().SetProjection(bson.D{
		{Key: "followers", Value: 1},
		{Key: "friends", Value: 1},
	})

	var user User
	err := e.users.FindOne(ctx, bson.M{"id": userId}, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(user.Followers)+len(user.Friends))
	related := make([]string, 0, len(user.Followers)+len(user.Friends))

	for _, group := range [][]string{user.Followers, user.Friends} {
		for _, id := range group {
			if _, ok := seen[id]; ok {
				continue
			}

			seen[id] = struct{}{}
			related = append(related, id)
		}
	}

	return related, nil
}

func (e *PersistenceEngine) SaveNotification(ctx context.Context, request persistence.SaveNotificationRequest) (persistence.Notification, error) {
	data := request.Data
	if data == nil {
		data = map[string]any{}
	}

	notification := Notification{
		Id:          uuid.NewString(),
		RecipientId: request.RecipientId,
		SenderId:    request.SenderId,
		Type:        request.Type,
		Title:       request.Title,
		Message:     request.Message,
		Data:        data,
		CreateTime:  time.Now().UTC(),
	}

	_, err := e.notifications.InsertOne(ctx, notification)
	if err != nil {
		return persistence.Notification{}, err
	}

	return notification.toRecord(), nil
}

func (e *PersistenceEngine) ListNotifications(ctx context.Context, request persistence.ListNotificationsRequest) ([]persistence.Notification, error) {
	request = request.Normalize()

	filter := bson.M{"recipient_id": request.RecipientId}
	if request.UnreadOnly {
		filter["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(request.Offset)).
		SetLimit(int64(request.Limit))

	result, err := e.notifications.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}

	var mongoNotifications []Notification
	err = result.All(ctx, &mongoNotifications)
	if err != nil {
		return nil, err
	}

	senders, err := e.findSenders(ctx, mongoNotifications)
	if err != nil {
		return nil, err
	}

	notifications := make([]persistence.Notification, len(mongoNotifications))
	for i, n := range mongoNotifications {
		notifications[i] = withSender(n.toRecord(), senders)
	}

	return notifications, nil
}

// findSenders loads the user documents of every distinct sender in one query.
func (e *PersistenceEngine) findSenders(ctx context.Context, notifications []Notification) (map[string]User, error) {
	senderIds := make([]string, 0, len(notifications))
	seen := make(map[string]struct{}, len(notifications))

	for _, n := range notifications {
		if n.SenderId == "" {
			continue
		}

		if _, ok := seen[n.SenderId]; ok {
			continue
		}

		seen[n.SenderId] = struct{}{}
		senderIds = append(senderIds, n.SenderId)
	}

	senders := make(map[string]User, len(senderIds))
	if len(senderIds) == 0 {
		return senders, nil
	}

	opts := options.Find().SetProjection(bson.D{
		{Key: "id", Value: 1},
		{Key: "username", Value: 1},
		{Key: "full_name", Value: 1},
		{Key: "profile_image_url", Value: 1},
	})

	result, err := e.users.Find(ctx, bson.M{"id": bson.M{"$in": senderIds}}, opts)
	if err != nil {
		return nil, err
	}

	var users []User
	err = result.All(ctx, &users)
	if err != nil {
		return nil, err
	}

	for _, user := range users {
		senders[user.Id] = user
	}

	return senders, nil
}

func withSender(notification persistence.Notification, senders map[string]User) persistence.Notification {
	if notification.SenderId == "" {
		return notification
	}

	sender, ok := senders[notification.SenderId]
	if !ok {
		notification.SenderUsername = persistence.UnknownSender
		notification.SenderFullName = persistence.UnknownSender

		return notification
	}

	notification.SenderUsername = sender.Username
	notification.SenderFullName = sender.FullName
	notification.SenderProfileImage = sender.ProfileImageUrl

	return notification
}

func (e *PersistenceEngine) CountUnread(ctx context.Context, recipientId string) (int64, error) {
	return e.notifications.CountDocuments(ctx, bson.M{"recipient_id": recipientId, "read": false})
}

// MarkRead fails with ErrNotificationNotOwned when recipientId does not own the notification.
func (e *PersistenceEngine) MarkRead(ctx context.Context, notificationId string, recipientId string) error {
	opts := options.FindOne().SetProjection(bson.D{{Key: "recipient_id", Value: 1}})

	var notification Notification
	err := e.notifications.FindOne(ctx, bson.M{"id": notificationId}, opts).Decode(&notification)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return persistence.ErrNotificationNotFound
	}
	if err != nil {
		return err
	}

	if notification.RecipientId != recipientId {
		return persistence.ErrNotificationNotOwned
	}

	_, err = e.notifications.UpdateOne(ctx,
		bson.M{"id": notificationId},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}},
	)

	return err
}

func (e *PersistenceEngine) MarkAllRead(ctx context.Context, recipientId string) (int64, error) {
	result, err := e.notifications.UpdateMany(ctx,
		bson.M{"recipient_id": recipientId, "read": false},
		bson.M{"$set": bson.M{"read": true, "read_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}

	return result.ModifiedCount, nil
}
