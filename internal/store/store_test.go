package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

// runStoreSuite checks the behaviour every Store implementation must share.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("community tx rollback", func(t *testing.T) { testCommunityRollback(t, newStore(t)) })
	t.Run("memberships", func(t *testing.T) { testMemberships(t, newStore(t)) })
	t.Run("posts and media", func(t *testing.T) { testPosts(t, newStore(t)) })
	t.Run("votes and counters", func(t *testing.T) { testVotes(t, newStore(t)) })
	t.Run("concurrent counters", func(t *testing.T) { testConcurrentCounters(t, newStore(t)) })
	t.Run("cascade delete", func(t *testing.T) { testCascadeDelete(t, newStore(t)) })
}

func mustUser(t *testing.T, s Store, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.com", PasswordHash: "x"}
	require.NoError(t, s.CreateUser(context.Background(), u))
	return u
}

func mustCommunity(t *testing.T, s Store, name string, owner *models.User) *models.Community {
	t.Helper()
	ctx := context.Background()
	c := &models.Community{Name: name, OwnerID: owner.ID}
	require.NoError(t, s.CreateCommunity(ctx, c))
	require.NoError(t, s.CreateMembership(ctx, &models.Membership{CommunityID: c.ID, UserID: owner.ID}))
	return c
}

func mustPost(t *testing.T, s Store, c *models.Community, author *models.User, slug string) *models.Post {
	t.Helper()
	p := &models.Post{Title: slug, Slug: slug, CommunityID: c.ID, AuthorID: author.ID}
	require.NoError(t, s.CreatePost(context.Background(), p))
	return p
}

func testUsers(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	assert.NotZero(t, alice.ID)

	err := s.CreateUser(ctx, &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.UserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, got.ID)

	got, err = s.UserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = s.UserByID(ctx, alice.ID+1000)
	assert.ErrorIs(t, err, ErrNotFound)

	got.Bio = "hello"
	got.EmailVerified = true
	require.NoError(t, s.UpdateUser(ctx, got))
	got, err = s.UserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", got.Bio)
	assert.True(t, got.EmailVerified)

	bob := mustUser(t, s, "bob")
	bob.Username = "alice"
	assert.ErrorIs(t, s.UpdateUser(ctx, bob), ErrDuplicate)
}

func testCommunityRollback(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	boom := errors.New("boom")

	err := s.Tx(ctx, func(tx Store) error {
		c := &models.Community{Name: "coding", OwnerID: alice.ID}
		if err := tx.CreateCommunity(ctx, c); err != nil {
			return err
		}
		if err := tx.CreateMembership(ctx, &models.Membership{CommunityID: c.ID, UserID: alice.ID}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.CommunityByName(ctx, "coding")
	assert.ErrorIs(t, err, ErrNotFound)

	mustCommunity(t, s, "coding", alice)
	err = s.CreateCommunity(ctx, &models.Community{Name: "coding", OwnerID: alice.ID})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func testMemberships(t *testing.T, s Store) {
	ctx := context.Background()
	alice, bob := mustUser(t, s, "alice"), mustUser(t, s, "bob")
	c := mustCommunity(t, s, "coding", alice)

	require.NoError(t, s.CreateMembership(ctx, &models.Membership{CommunityID: c.ID, UserID: bob.ID}))
	err := s.CreateMembership(ctx, &models.Membership{CommunityID: c.ID, UserID: bob.ID})
	assert.ErrorIs(t, err, ErrDuplicate)

	members, n, err := s.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	require.Len(t, members, 2)
	assert.Equal(t, alice.ID, members[0].UserID)
	require.NotNil(t, members[1].User)
	assert.Equal(t, "bob", members[1].User.Username)

	joined, n, err := s.CommunitiesJoinedBy(ctx, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, "coding", joined[0].Name)

	owned, n, err := s.CommunitiesOwnedBy(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, owned)

	removed, err := s.DeleteMembership(ctx, c.ID, bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = s.Membership(ctx, c.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func testPosts(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	coding, golang := mustCommunity(t, s, "coding", alice), mustCommunity(t, s, "golang", alice)

	p := &models.Post{
		Title: "Clean Code!", Slug: "clean_code", CommunityID: coding.ID, AuthorID: alice.ID,
		Media: []models.Media{{URL: "posts/a.png"}, {URL: "posts/b.png"}},
	}
	require.NoError(t, s.CreatePost(ctx, p))
	mustPost(t, s, golang, alice, "clean_code")

	dup := &models.Post{Title: "x", Slug: "clean_code", CommunityID: coding.ID, AuthorID: alice.ID}
	assert.ErrorIs(t, s.CreatePost(ctx, dup), ErrDuplicate)

	exists, err := s.SlugExists(ctx, coding.ID, "clean_code", p.ID)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = s.SlugExists(ctx, coding.ID, "clean_code", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.PostBySlug(ctx, coding.ID, "clean_code")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	require.Len(t, got.Media, 2)
	assert.Equal(t, "posts/a.png", got.Media[0].URL)
	require.NotNil(t, got.Author)
	assert.Equal(t, "alice", got.Author.Username)

	media, err := s.ReplaceMedia(ctx, p.ID, []string{"posts/c.png"})
	require.NoError(t, err)
	require.Len(t, media, 1)

	got.Title, got.Slug, got.Content = "Cleaner Code", "cleaner_code", "body"
	require.NoError(t, s.UpdatePost(ctx, got))

	got, err = s.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "cleaner_code", got.Slug)
	assert.Equal(t, "body", got.Content)
	require.Len(t, got.Media, 1)
	assert.Equal(t, "posts/c.png", got.Media[0].URL)

	posts, n, err := s.PostsByCommunity(ctx, coding.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Len(t, posts, 1)

	_, n, err = s.PostsByAuthor(ctx, alice.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	summaries, n, err := s.ListCommunities(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	for _, sm := range summaries {
		assert.EqualValues(t, 1, sm.MemberCount, sm.Name)
		assert.EqualValues(t, 1, sm.PostCount, sm.Name)
	}

	removed, err := s.DeletePost(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)
	removed, err = s.DeletePost(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func testVotes(t *testing.T, s Store) {
	ctx := context.Background()
	alice, bob := mustUser(t, s, "alice"), mustUser(t, s, "bob")
	c := mustCommunity(t, s, "coding", alice)
	p := mustPost(t, s, c, alice, "hello")

	_, err := s.VoteForUpdate(ctx, p.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	err = s.Tx(ctx, func(tx Store) error {
		v := &models.PostVote{PostID: p.ID, UserID: bob.ID, Direction: vote.Up}
		if err := tx.CreateVote(ctx, v); err != nil {
			return err
		}
		return tx.AdjustCounters(ctx, p.ID, 1, 0)
	})
	require.NoError(t, err)

	dup := &models.PostVote{PostID: p.ID, UserID: bob.ID, Direction: vote.Down}
	assert.ErrorIs(t, s.CreateVote(ctx, dup), ErrDuplicate)

	v, err := s.VoteForUpdate(ctx, p.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, vote.Up, v.Direction)

	upvoted, n, err := s.PostsVotedBy(ctx, bob.ID, vote.Up)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	assert.Equal(t, p.ID, upvoted[0].ID)

	require.NoError(t, s.UpdateVoteDirection(ctx, v.ID, vote.Down))
	require.NoError(t, s.AdjustCounters(ctx, p.ID, -1, 1))

	got, err := s.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Upvotes)
	assert.Equal(t, 1, got.Downvotes)

	downs, err := s.CountVotes(ctx, p.ID, vote.Down)
	require.NoError(t, err)
	assert.EqualValues(t, 1, downs)

	require.NoError(t, s.DeleteVote(ctx, v.ID))
	downs, err = s.CountVotes(ctx, p.ID, vote.Down)
	require.NoError(t, err)
	assert.Zero(t, downs)

	assert.ErrorIs(t, s.AdjustCounters(ctx, p.ID+1000, 1, 0), ErrNotFound)
	assert.Error(t, s.AdjustCounters(ctx, p.ID, -1, 0), "counters never go negative")
}

func testConcurrentCounters(t *testing.T, s Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	c := mustCommunity(t, s, "coding", alice)
	p := mustPost(t, s, c, alice, "busy")

	const voters = 20
	var wg sync.WaitGroup
	for range voters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Tx(ctx, func(tx Store) error {
				return tx.AdjustCounters(ctx, p.ID, 1, 0)
			}))
		}()
	}
	wg.Wait()

	got, err := s.PostByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, got.Upvotes)
}

func testCascadeDelete(t *testing.T, s Store) {
	ctx := context.Background()
	alice, bob := mustUser(t, s, "alice"), mustUser(t, s, "bob")
	c := mustCommunity(t, s, "coding", alice)
	keep := mustCommunity(t, s, "golang", alice)
	require.NoError(t, s.CreateMembership(ctx, &models.Membership{CommunityID: c.ID, UserID: bob.ID}))

	p := mustPost(t, s, c, alice, "doomed")
	kept := mustPost(t, s, keep, alice, "kept")
	require.NoError(t, s.CreateVote(ctx, &models.PostVote{PostID: p.ID, UserID: bob.ID, Direction: vote.Up}))
	_, err := s.ReplaceMedia(ctx, p.ID, []string{"posts/x.png"})
	require.NoError(t, err)

	var removed int64
	err = s.Tx(ctx, func(tx Store) error {
		var err error
		removed, err = tx.DeleteCommunity(ctx, c.ID)
		return err
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, removed)

	_, err = s.CommunityByID(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.PostByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, n, err := s.ListMembers(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, n, err = s.PostsVotedBy(ctx, bob.ID, vote.Up)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = s.PostByID(ctx, kept.ID)
	assert.NoError(t, err)

	removed, err = s.DeleteCommunity(ctx, c.ID)
	require.NoError(t, err)
	assert.Zero(t, removed)
}
