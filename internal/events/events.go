// Package events publishes domain events once the change that caused them has committed.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	CommunityCreated Type = "community.created"
	CommunityUpdated Type = "community.updated"
	CommunityDeleted Type = "community.deleted"
	MemberJoined     Type = "membership.joined"
	MemberLeft       Type = "membership.left"
	PostCreated      Type = "post.created"
	PostUpdated      Type = "post.updated"
	PostDeleted      Type = "post.deleted"
	PostVoted        Type = "post.voted"
	UserRegistered   Type = "user.registered"
)

type Event struct {
	ID         string         `json:"id"`
	Type       Type           `json:"type"`
	Key        string         `json:"key"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// New builds an event keyed by the id of the aggregate it concerns.
func New(typ Type, aggregateID int, data map[string]any) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Key:        strconv.Itoa(aggregateID),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// LogPublisher writes events to the structured log. It is the default when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	raw, err := json.Marshal(e.Data)
	if err != nil {
		return err
	}
	p.Logger.InfoContext(ctx, "domain event", "event_id", e.ID, "type", e.Type, "key", e.Key, "data", string(raw))
	return nil
}

func (LogPublisher) Close() error { return nil }
