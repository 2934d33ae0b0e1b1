package service

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/auth"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []events.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Type, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// seen waits for the relay to deliver an event of type typ.
func (r *recorder) seen(t *testing.T, typ events.Type) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return slices.Contains(r.types(), typ)
	}, time.Second, 5*time.Millisecond, "event %s was not published", typ)
}

type sentMail struct {
	to, subject, body string
}

type mailbox struct {
	mu   sync.Mutex
	sent []sentMail
}

func (m *mailbox) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to, subject, body})
	return nil
}

type fixture struct {
	*Services
	store  store.Store
	events *recorder
	mail   *mailbox
	tokens *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWithStore(t, store.NewMemory())
}

func newFixtureWithStore(t *testing.T, st store.Store) *fixture {
	t.Helper()
	rec, box := &recorder{}, &mailbox{}
	tokens := auth.NewTokens("test-secret", time.Hour, time.Hour)
	svc := New(Options{
		Store:     st,
		Events:    rec,
		Tokens:    tokens,
		Mailer:    box,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		PublicURL: "http://localhost:8080/",
	})
	t.Cleanup(func() { _ = svc.Close() })
	return &fixture{Services: svc, store: st, events: rec, mail: box, tokens: tokens}
}

func (f *fixture) register(t *testing.T, username string) *models.User {
	t.Helper()
	_, u, err := f.Users.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@example.com",
		Password: "password1",
	})
	require.NoError(t, err)
	return u
}

func (f *fixture) community(t *testing.T, owner *models.User, name string) *models.Community {
	t.Helper()
	c, err := f.Communities.Create(context.Background(), owner.ID, CreateCommunityInput{Name: name})
	require.NoError(t, err)
	return c
}

func (f *fixture) post(t *testing.T, author *models.User, c *models.Community, title string) *models.Post {
	t.Helper()
	p, err := f.Posts.Create(context.Background(), author.ID, c.Name, CreatePostInput{Title: title})
	require.NoError(t, err)
	return p
}

func requireKind(t *testing.T, err error, kind apperr.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, apperr.KindOf(err), "error: %v", err)
}

// faultyStore fails selected operations, inside transactions too.
type faultyStore struct {
	store.Store
	failMembership bool
	zeroDeletes    bool
}

var errInjected = io.ErrUnexpectedEOF

func (f *faultyStore) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return f.Store.Tx(ctx, func(tx store.Store) error {
		return fn(&faultyStore{Store: tx, failMembership: f.failMembership, zeroDeletes: f.zeroDeletes})
	})
}

func (f *faultyStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	if f.failMembership {
		return errInjected
	}
	return f.Store.CreateMembership(ctx, m)
}

func (f *faultyStore) DeletePost(ctx context.Context, id int) (int64, error) {
	if f.zeroDeletes {
		return 0, nil
	}
	return f.Store.DeletePost(ctx, id)
}

func (f *faultyStore) DeleteCommunity(ctx context.Context, id int) (int64, error) {
	if f.zeroDeletes {
		return 0, nil
	}
	return f.Store.DeleteCommunity(ctx, id)
}
