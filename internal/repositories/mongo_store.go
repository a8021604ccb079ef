package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"chat-sync/internal/models"
)

// chatDocument is the stored shape of a chat: messages are embedded and append-only.
type chatDocument struct {
	ID             primitive.ObjectID `bson:"_id"`
	ParticipantKey string             `bson:"participant_key"`
	Participants   []string           `bson:"participants"`
	Messages       []models.Message   `bson:"messages"`
	CreatedAt      time.Time          `bson:"created_at"`
}

func (d chatDocument) toModel() models.Chat {
	chat := models.Chat{
		ID:             d.ID.Hex(),
		Participants:   d.Participants,
		ParticipantKey: d.ParticipantKey,
		CreatedAt:      d.CreatedAt,
	}
	for _, m := range d.Messages {
		m.ChatID = chat.ID
		chat.Messages = append(chat.Messages, m)
	}
	return chat
}

// MongoStore keeps users and chats as documents. It implements
// UserRepository, ChatRepository and MessageRepository.
type MongoStore struct {
	users *mongo.Collection
	chats *mongo.Collection
}

// NewMongoStore constructs a MongoStore over the given database.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{users: db.Collection("users"), chats: db.Collection("chats")}
}

// CreateUser inserts a user document keyed by email.
func (s *MongoStore) CreateUser(ctx context.Context, email string, passwordHash string) (models.User, error) {
	user := models.User{
		Email:        email,
		PasswordHash: passwordHash,
		Chats:        []string{},
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.User{}, ErrUserExists
		}
		return models.User{}, err
	}
	return user, nil
}

// GetUserByEmail loads a user document.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	if user.Chats == nil {
		user.Chats = []string{}
	}
	return user, nil
}

// FindOrCreateChat upserts the chat on its unique participant key, then links
// every registered participant with $addToSet. Linking runs on every call, so a
// previous partial failure is repaired by the next request for the same set.
func (s *MongoStore) FindOrCreateChat(ctx context.Context, participants []string) (models.Chat, error) {
	participants = models.NormalizeParticipants(participants)
	if len(participants) == 0 {
		return models.Chat{}, ErrNoParticipants
	}
	key := models.ParticipantKey(participants)
	filter := bson.M{"participant_key": key}

	update := bson.M{"$setOnInsert": bson.M{
		"_id":          primitive.NewObjectID(),
		"participants": participants,
		"messages":     bson.A{},
		"created_at":   time.Now().UTC().Truncate(time.Millisecond),
	}}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After).
		SetProjection(bson.M{"messages": 0})

	var doc chatDocument
	err := s.chats.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the upsert race; the winner's document is now visible.
		err = s.chats.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"messages": 0})).Decode(&doc)
	}
	if err != nil {
		return models.Chat{}, err
	}

	if _, err := s.users.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": doc.Participants}},
		bson.M{"$addToSet": bson.M{"chats": doc.ID.Hex()}},
	); err != nil {
		return models.Chat{}, err
	}
	return doc.toModel(), nil
}

// GetChat fetches a chat without its messages.
func (s *MongoStore) GetChat(ctx context.Context, chatID string) (models.Chat, error) {
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return models.Chat{}, ErrChatNotFound
	}
	var doc chatDocument
	err = s.chats.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"messages": 0})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Chat{}, ErrChatNotFound
	}
	if err != nil {
		return models.Chat{}, err
	}
	return doc.toModel(), nil
}

// IsParticipant checks whether email belongs to the chat.
func (s *MongoStore) IsParticipant(ctx context.Context, chatID string, email string) (bool, error) {
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return false, nil
	}
	count, err := s.chats.CountDocuments(ctx, bson.M{"_id": id, "participants": email})
	return count > 0, err
}

// ListChatsForUser resolves the user's chat references, newest first, each
// carrying only its latest message.
func (s *MongoStore) ListChatsForUser(ctx context.Context, email string) ([]models.Chat, error) {
	user, err := s.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(user.Chats))
	for _, hex := range user.Chats {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return []models.Chat{}, nil
	}

	opts := options.Find().
		SetProjection(bson.M{"messages": bson.M{"$slice": -1}}).
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := s.chats.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	var docs []chatDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	chats := make([]models.Chat, 0, len(docs))
	for _, d := range docs {
		chats = append(chats, d.toModel())
	}
	return chats, nil
}

// AppendMessage pushes msg onto the chat's embedded message list.
func (s *MongoStore) AppendMessage(ctx context.Context, chatID string, msg models.Message) (models.Message, error) {
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return models.Message{}, ErrChatNotFound
	}
	msg.ChatID = chatID
	msg.Timestamp = time.Now().UTC().Truncate(time.Millisecond)

	res, err := s.chats.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"messages": msg}})
	if err != nil {
		return models.Message{}, err
	}
	if res.MatchedCount == 0 {
		return models.Message{}, ErrChatNotFound
	}
	return msg, nil
}

// ListMessages returns the chat's embedded messages in append order.
func (s *MongoStore) ListMessages(ctx context.Context, chatID string) ([]models.Message, error) {
	id, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return nil, ErrChatNotFound
	}
	var doc chatDocument
	err = s.chats.FindOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(bson.M{"messages": 1})).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, err
	}
	msgs := doc.toModel().Messages
	if msgs == nil {
		msgs = []models.Message{}
	}
	return msgs, nil
}

var _ UserRepository = (*MongoStore)(nil)
var _ ChatRepository = (*MongoStore)(nil)
var _ MessageRepository = (*MongoStore)(nil)
