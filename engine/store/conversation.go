package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Conversation is one chat session's metadata.
type Conversation struct {
	ID           string `json:"convo_id"`
	Title        string `json:"conversation_title"`
	MessageCount int    `json:"message_count"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

// Message is one user/assistant exchange inside a conversation.
type Message struct {
	UserInput     string         `json:"user_input"`
	AIOutput      string         `json:"ai_generated_output"`
	SubmittedData map[string]any `json:"submitted_data,omitempty"`
	Timestamp     string         `json:"timestamp"`
}

// CreateConversation starts a new conversation. An empty title gets the
// default "Chat on <timestamp>" form.
func (s *Store) CreateConversation(ctx context.Context, userID, title string) (Conversation, error) {
	now := time.Now().UTC()
	if title == "" {
		title = "Chat on " + now.Format("2006-01-02 15:04")
	}
	convo := Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now.Format(time.RFC3339),
		UpdatedAt: now.Format(time.RFC3339),
	}
	if err := s.saveConversation(ctx, userID, convo, float64(now.Unix())); err != nil {
		return Conversation{}, err
	}
	return convo, nil
}

func (s *Store) saveConversation(ctx context.Context, userID string, convo Conversation, score float64) error {
	b, err := json.Marshal(convo)
	if err != nil {
		return fmt.Errorf("store: marshal conversation: %w", err)
	}
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, convoKey(userID, convo.ID), b, 0)
	pipe.ZAdd(ctx, convoIndexKey(userID), redis.Z{Score: score, Member: convo.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: save conversation %s: %w", convo.ID, err)
	}
	return nil
}

// GetConversation loads one conversation's metadata.
func (s *Store) GetConversation(ctx context.Context, userID, convoID string) (Conversation, error) {
	var convo Conversation
	b, err := s.rdb.Get(ctx, convoKey(userID, convoID)).Bytes()
	if err == redis.Nil {
		return convo, fmt.Errorf("store: conversation %s: %w", convoID, ErrNotFound)
	}
	if err != nil {
		return convo, fmt.Errorf("store: get conversation %s: %w", convoID, err)
	}
	if err := json.Unmarshal(b, &convo); err != nil {
		return convo, fmt.Errorf("store: decode conversation %s: %w", convoID, err)
	}
	return convo, nil
}

// ListConversations returns the user's conversations, most recent first.
func (s *Store) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	ids, err := s.rdb.ZRevRange(ctx, convoIndexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: list conversations: %w", err)
	}
	convos := make([]Conversation, 0, len(ids))
	for _, id := range ids {
		convo, err := s.GetConversation(ctx, userID, id)
		if err != nil {
			// An index entry without a document is stale; skip it.
			continue
		}
		convos = append(convos, convo)
	}
	return convos, nil
}

// AppendMessage appends an exchange to a conversation and bumps its
// message count and recency. The conversation must exist.
func (s *Store) AppendMessage(ctx context.Context, userID, convoID string, msg Message) error {
	convo, err := s.GetConversation(ctx, userID, convoID)
	if err != nil {
		return err
	}
	if msg.Timestamp == "" {
		msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("store: marshal message: %w", err)
	}
	if err := s.rdb.RPush(ctx, convoMessagesKey(userID, convoID), b).Err(); err != nil {
		return fmt.Errorf("store: append message: %w", err)
	}

	now := time.Now().UTC()
	convo.MessageCount++
	convo.UpdatedAt = now.Format(time.RFC3339)
	return s.saveConversation(ctx, userID, convo, float64(now.Unix()))
}

// GetHistory returns a conversation's messages in append order.
func (s *Store) GetHistory(ctx context.Context, userID, convoID string) ([]Message, error) {
	raw, err := s.rdb.LRange(ctx, convoMessagesKey(userID, convoID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: get history %s: %w", convoID, err)
	}
	msgs := make([]Message, 0, len(raw))
	for _, r := range raw {
		var m Message
		if err := json.Unmarshal([]byte(r), &m); err != nil {
			return nil, fmt.Errorf("store: decode message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

// RenameConversation updates a conversation's title, typically after the
// model generates one from the first exchange.
func (s *Store) RenameConversation(ctx context.Context, userID, convoID, title string) error {
	convo, err := s.GetConversation(ctx, userID, convoID)
	if err != nil {
		return err
	}
	convo.Title = title
	convo.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	score, err := s.rdb.ZScore(ctx, convoIndexKey(userID), convoID).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("store: rename conversation %s: %w", convoID, err)
	}
	return s.saveConversation(ctx, userID, convo, score)
}

// DeleteConversation removes a conversation and its messages.
func (s *Store) DeleteConversation(ctx context.Context, userID, convoID string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, convoKey(userID, convoID))
	pipe.Del(ctx, convoMessagesKey(userID, convoID))
	pipe.ZRem(ctx, convoIndexKey(userID), convoID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: delete conversation %s: %w", convoID, err)
	}
	return nil
}
