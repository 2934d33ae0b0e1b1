// Package service implements the community, membership, post, vote and user
// operations on top of a store.Store.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"unicode"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/auth"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/mail"
	"github.com/emilythestrangee/subreddit/backend/internal/metrics"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
)

type Options struct {
	Store store.Store
	// Events receives domain events through a background relay; a slow
	// publisher never holds up the operation that emitted the event.
	Events    events.Publisher
	Tokens    *auth.Tokens
	Mailer    mail.Mailer
	Logger    *slog.Logger
	PublicURL string
}

type Services struct {
	Users       *UserService
	Communities *CommunityService
	Memberships *MembershipService
	Posts       *PostService
	Votes       *VoteService

	relay *events.Relay
}

// Close flushes queued events and closes the publisher.
func (s *Services) Close() error {
	return s.relay.Close()
}

func New(opts Options) *Services {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Events == nil {
		opts.Events = events.LogPublisher{Logger: opts.Logger}
	}
	if opts.Mailer == nil {
		opts.Mailer = mail.LogMailer{Logger: opts.Logger}
	}
	log := opts.Logger
	relay := events.NewRelay(opts.Events, events.RelayOptions{
		OnError: func(e events.Event, err error) {
			metrics.EventPublishFailures.WithLabelValues(string(e.Type)).Inc()
			log.Warn("failed to publish event", "type", e.Type, "key", e.Key, "err", err)
		},
	})
	b := base{store: opts.Store, events: relay, log: log}

	return &Services{
		Users: &UserService{
			base:      b,
			tokens:    opts.Tokens,
			mailer:    opts.Mailer,
			publicURL: strings.TrimRight(opts.PublicURL, "/"),
		},
		Communities: &CommunityService{base: b},
		Memberships: &MembershipService{base: b},
		Posts:       &PostService{base: b},
		Votes:       &VoteService{base: b},
		relay:       relay,
	}
}

type base struct {
	store  store.Store
	events events.Publisher
	log    *slog.Logger
}

// publish queues e after the change it describes has committed. Failures are
// logged and counted, never returned.
func (b base) publish(ctx context.Context, e events.Event) {
	if err := b.events.Publish(ctx, e); err != nil {
		metrics.EventPublishFailures.WithLabelValues(string(e.Type)).Inc()
		b.log.WarnContext(ctx, "failed to publish event", "type", e.Type, "key", e.Key, "err", err)
	}
}

func (b base) community(ctx context.Context, st store.Store, id int) (*models.Community, error) {
	c, err := st.CommunityByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Subreddit not found")
	}
	return c, nil
}

func (b base) communityByName(ctx context.Context, st store.Store, name string) (*models.Community, error) {
	c, err := st.CommunityByName(ctx, name)
	if err != nil {
		return nil, notFound(err, "Subreddit r/%s not found", name)
	}
	return c, nil
}

func (b base) userByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := b.store.UserByUsername(ctx, username)
	if err != nil {
		return nil, notFound(err, "User %s not found", username)
	}
	return u, nil
}

// notFound turns store.ErrNotFound into a NotFound domain error and passes anything else through.
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func hasWhitespace(s string) bool {
	return strings.ContainsFunc(s, unicode.IsSpace)
}
