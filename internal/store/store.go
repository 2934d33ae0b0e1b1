// Package store is the persistence boundary of the domain services.
package store

import (
	"context"
	"errors"

	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

var (
	// ErrNotFound is returned when a lookup by id or unique key matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert or update violates a unique constraint.
	ErrDuplicate = errors.New("duplicate key")
)

// Store is implemented by the gorm backed store and the in-memory store.
// Methods called on the Store passed to Tx's callback run inside that transaction.
type Store interface {
	Tx(ctx context.Context, fn func(tx Store) error) error

	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id int) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)

	CreateCommunity(ctx context.Context, c *models.Community) error
	UpdateCommunity(ctx context.Context, c *models.Community) error
	// DeleteCommunity removes the community and everything that hangs off it,
	// returning the number of community rows removed.
	DeleteCommunity(ctx context.Context, id int) (int64, error)
	CommunityByID(ctx context.Context, id int) (*models.Community, error)
	CommunityByName(ctx context.Context, name string) (*models.Community, error)
	ListCommunities(ctx context.Context) ([]models.CommunitySummary, int64, error)
	CommunitiesOwnedBy(ctx context.Context, userID int) ([]models.Community, int64, error)
	CommunitiesJoinedBy(ctx context.Context, userID int) ([]models.Community, int64, error)

	CreateMembership(ctx context.Context, m *models.Membership) error
	DeleteMembership(ctx context.Context, communityID, userID int) (int64, error)
	Membership(ctx context.Context, communityID, userID int) (*models.Membership, error)
	ListMembers(ctx context.Context, communityID int) ([]models.Membership, int64, error)

	CreatePost(ctx context.Context, p *models.Post) error
	UpdatePost(ctx context.Context, p *models.Post) error
	// DeletePost removes the post with its votes and media.
	DeletePost(ctx context.Context, id int) (int64, error)
	PostByID(ctx context.Context, id int) (*models.Post, error)
	PostBySlug(ctx context.Context, communityID int, slug string) (*models.Post, error)
	SlugExists(ctx context.Context, communityID int, slug string, exceptPostID int) (bool, error)
	PostsByCommunity(ctx context.Context, communityID int) ([]models.Post, int64, error)
	PostsByAuthor(ctx context.Context, userID int) ([]models.Post, int64, error)
	PostsVotedBy(ctx context.Context, userID int, d vote.Direction) ([]models.Post, int64, error)
	// ReplaceMedia deletes every media row of the post and inserts urls in order.
	ReplaceMedia(ctx context.Context, postID int, urls []string) ([]models.Media, error)

	// VoteForUpdate returns the user's vote on the post, locking it for the
	// rest of the transaction, or ErrNotFound.
	VoteForUpdate(ctx context.Context, postID, userID int) (*models.PostVote, error)
	CreateVote(ctx context.Context, v *models.PostVote) error
	UpdateVoteDirection(ctx context.Context, id int, d vote.Direction) error
	DeleteVote(ctx context.Context, id int) error
	// AdjustCounters adds the deltas to the post's counters with atomic arithmetic.
	AdjustCounters(ctx context.Context, postID, dUp, dDown int) error
	CountVotes(ctx context.Context, postID int, d vote.Direction) (int64, error)
}
