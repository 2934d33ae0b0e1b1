package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
)

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.register(t, "alice"), f.register(t, "bob")
	coding := f.community(t, alice, "coding")

	p, err := f.Posts.Create(ctx, alice.ID, "coding", CreatePostInput{
		Title:     "Clean Code!",
		Content:   "read it",
		MediaURLs: []string{"/static/posts/a.png", "/static/posts/b.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "clean_code", p.Slug)
	assert.Equal(t, coding.ID, p.CommunityID)
	assert.Zero(t, p.Upvotes)
	assert.Zero(t, p.Downvotes)
	require.Len(t, p.Media, 2)
	assert.Equal(t, "/static/posts/a.png", p.Media[0].URL)

	got, err := f.Posts.GetBySlug(ctx, "coding", "clean_code")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = f.Posts.Create(ctx, bob.ID, "coding", CreatePostInput{Title: "hi"})
	requireKind(t, err, apperr.KindInvalidRequest)
	assert.Contains(t, err.Error(), "not member")

	_, err = f.Posts.Create(ctx, alice.ID, "nope", CreatePostInput{Title: "hi"})
	requireKind(t, err, apperr.KindNotFound)

	_, err = f.Posts.Create(ctx, alice.ID, "coding", CreatePostInput{Title: "   "})
	requireKind(t, err, apperr.KindInvalidRequest)

	f.events.seen(t, events.PostCreated)
}

func TestPostSlugCollisionGetsSuffix(t *testing.T) {
	f := newFixture(t)
	alice := f.register(t, "alice")
	coding := f.community(t, alice, "coding")
	golang := f.community(t, alice, "golang")

	first := f.post(t, alice, coding, "Clean Code!")
	second := f.post(t, alice, coding, "clean code")
	assert.Equal(t, "clean_code", first.Slug)
	assert.Regexp(t, `^clean_code_[0-9a-f]{6}$`, second.Slug)

	other := f.post(t, alice, golang, "Clean Code")
	assert.Equal(t, "clean_code", other.Slug, "slugs are scoped to the community")

	empty := f.post(t, alice, coding, "!!!")
	assert.Equal(t, "post", empty.Slug)
}

func TestUpdatePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.register(t, "alice"), f.register(t, "bob")
	coding := f.community(t, alice, "coding")
	_, err := f.Memberships.Join(ctx, coding.ID, bob.ID)
	require.NoError(t, err)

	p, err := f.Posts.Create(ctx, alice.ID, "coding", CreatePostInput{
		Title:     "Hello World",
		MediaURLs: []string{"/static/posts/old.png"},
	})
	require.NoError(t, err)

	title := "Goodbye World"
	_, _, err = f.Posts.Update(ctx, "coding", p.Slug, bob.ID, UpdatePostInput{Title: &title})
	requireKind(t, err, apperr.KindForbidden)

	blank := ""
	_, _, err = f.Posts.Update(ctx, "coding", p.Slug, alice.ID, UpdatePostInput{Title: &blank})
	requireKind(t, err, apperr.KindInvalidRequest)

	content := "new body"
	updated, dropped, err := f.Posts.Update(ctx, "coding", p.Slug, alice.ID, UpdatePostInput{
		Title:        &title,
		Content:      &content,
		ReplaceMedia: true,
		MediaURLs:    []string{"/static/posts/new.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, "goodbye_world", updated.Slug)
	assert.Equal(t, "new body", updated.Content)
	assert.Equal(t, []string{"/static/posts/old.png"}, dropped)
	require.Len(t, updated.Media, 1)
	assert.Equal(t, "/static/posts/new.png", updated.Media[0].URL)

	_, err = f.Posts.GetBySlug(ctx, "coding", "hello_world")
	requireKind(t, err, apperr.KindNotFound)

	// content-only update keeps slug and media
	again := "again"
	kept, dropped, err := f.Posts.Update(ctx, "coding", "goodbye_world", alice.ID, UpdatePostInput{Content: &again})
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, "goodbye_world", kept.Slug)
	assert.Len(t, kept.Media, 1)
}

func TestUpdatePostKeepsCounters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.register(t, "alice"), f.register(t, "bob")
	coding := f.community(t, alice, "coding")
	p := f.post(t, alice, coding, "Hello")

	_, err := f.Votes.Upvote(ctx, p.ID, bob.ID)
	require.NoError(t, err)

	content := "edited"
	updated, _, err := f.Posts.Update(ctx, "coding", p.Slug, alice.ID, UpdatePostInput{Content: &content})
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated.Upvotes)
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.register(t, "alice"), f.register(t, "bob")
	coding := f.community(t, alice, "coding")
	p, err := f.Posts.Create(ctx, alice.ID, "coding", CreatePostInput{
		Title:     "Hello",
		MediaURLs: []string{"/static/posts/a.png"},
	})
	require.NoError(t, err)
	_, err = f.Votes.Downvote(ctx, p.ID, bob.ID)
	require.NoError(t, err)

	_, err = f.Posts.Delete(ctx, p.ID, bob.ID)
	requireKind(t, err, apperr.KindForbidden)

	urls, err := f.Posts.Delete(ctx, p.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"/static/posts/a.png"}, urls)

	_, err = f.Posts.GetByID(ctx, p.ID)
	requireKind(t, err, apperr.KindNotFound)
	posts, n, err := f.Posts.ListByCommunity(ctx, coding.Name)
	require.NoError(t, err)
	assert.Empty(t, posts)
	assert.Zero(t, n)

	_, err = f.Posts.Delete(ctx, p.ID, alice.ID)
	requireKind(t, err, apperr.KindNotFound)
}

func TestDeletePostZeroRowsIsInfrastructure(t *testing.T) {
	f := newFixtureWithStore(t, &faultyStore{Store: store.NewMemory(), zeroDeletes: true})
	alice := f.register(t, "alice")
	coding := f.community(t, alice, "coding")
	p := f.post(t, alice, coding, "Hello")

	_, err := f.Posts.Delete(context.Background(), p.ID, alice.ID)
	requireKind(t, err, apperr.KindInfrastructure)
}

func TestPostListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.register(t, "alice"), f.register(t, "bob")
	coding := f.community(t, alice, "coding")
	_, err := f.Memberships.Join(ctx, coding.ID, bob.ID)
	require.NoError(t, err)

	f.post(t, alice, coding, "first")
	second := f.post(t, bob, coding, "second")

	posts, n, err := f.Posts.ListByCommunity(ctx, "coding")
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Equal(t, second.ID, posts[0].ID, "newest first")

	mine, n, err := f.Posts.SubmittedBy(ctx, "bob")
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, "second", mine[0].Title)

	_, _, err = f.Posts.SubmittedBy(ctx, "carol")
	requireKind(t, err, apperr.KindNotFound)
}

func TestCanPost(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob := f.register(t, "alice"), f.register(t, "bob")
	coding := f.community(t, alice, "coding")

	assert.NoError(t, f.Posts.CanPost(ctx, alice.ID, "coding"))
	requireKind(t, f.Posts.CanPost(ctx, bob.ID, "coding"), apperr.KindInvalidRequest)
	requireKind(t, f.Posts.CanPost(ctx, bob.ID, "nowhere"), apperr.KindNotFound)

	_, err := f.Memberships.Join(ctx, coding.ID, bob.ID)
	require.NoError(t, err)
	assert.NoError(t, f.Posts.CanPost(ctx, bob.ID, "coding"))
}
