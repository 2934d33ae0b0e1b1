package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/metrics"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
	"github.com/emilythestrangee/subreddit/backend/internal/telemetry"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

// VoteService applies vote toggles. The vote row and the post counters change
// in one transaction and the counters only ever move by atomic increments.
type VoteService struct {
	base
}

func (s *VoteService) Upvote(ctx context.Context, postID, userID int) (*models.Post, error) {
	return s.toggle(ctx, postID, userID, vote.Up)
}

func (s *VoteService) Downvote(ctx context.Context, postID, userID int) (*models.Post, error) {
	return s.toggle(ctx, postID, userID, vote.Down)
}

func (s *VoteService) toggle(ctx context.Context, postID, userID int, dir vote.Direction) (*models.Post, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "VoteService.toggle", trace.WithAttributes(
		attribute.Int("post.id", postID),
		attribute.String("vote.direction", dir.String()),
	))
	defer span.End()

	if _, err := s.store.PostByID(ctx, postID); err != nil {
		return nil, notFound(err, "Post not found")
	}

	next, err := s.apply(ctx, postID, userID, dir)
	// two first votes by the same user race on the unique (post, user) index;
	// the loser retries and sees the winner's row
	if errors.Is(err, store.ErrDuplicate) {
		metrics.VoteRetries.Inc()
		next, err = s.apply(ctx, postID, userID, dir)
	}
	if err != nil {
		return nil, notFound(err, "Post not found")
	}

	metrics.Votes.WithLabelValues(dir.String(), next.String()).Inc()
	span.SetAttributes(attribute.String("vote.state", next.String()))
	s.publish(ctx, events.New(events.PostVoted, postID, map[string]any{
		"user_id":   userID,
		"direction": dir.String(),
		"state":     next.String(),
	}))

	p, err := s.store.PostByID(ctx, postID)
	if err != nil {
		return nil, notFound(err, "Post not found")
	}
	return p, nil
}

func (s *VoteService) apply(ctx context.Context, postID, userID int, dir vote.Direction) (vote.State, error) {
	var next vote.State
	err := s.store.Tx(ctx, func(tx store.Store) error {
		current := vote.None
		existing, err := tx.VoteForUpdate(ctx, postID, userID)
		switch {
		case err == nil:
			current = vote.StateOf(existing.Direction)
		case errors.Is(err, store.ErrNotFound):
			existing = nil
		default:
			return fmt.Errorf("lookup vote: %w", err)
		}

		var dUp, dDown int
		next, dUp, dDown = vote.Transition(current, dir)

		switch {
		case existing == nil:
			err = tx.CreateVote(ctx, &models.PostVote{PostID: postID, UserID: userID, Direction: dir})
		case next == vote.None:
			err = tx.DeleteVote(ctx, existing.ID)
		default:
			err = tx.UpdateVoteDirection(ctx, existing.ID, dir)
		}
		if err != nil {
			return fmt.Errorf("write vote: %w", err)
		}
		return tx.AdjustCounters(ctx, postID, dUp, dDown)
	})
	return next, err
}
