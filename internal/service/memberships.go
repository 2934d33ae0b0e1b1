package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/authz"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/metrics"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
)

// MembershipService tracks which users belong to which community.
// Uniqueness of (community, user) is left to the store's unique index.
type MembershipService struct {
	base
}

func (s *MembershipService) IsMember(ctx context.Context, communityID, userID int) (bool, error) {
	return isMember(ctx, s.store, communityID, userID)
}

func isMember(ctx context.Context, st store.Store, communityID, userID int) (bool, error) {
	_, err := st.Membership(ctx, communityID, userID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	default:
		return false, fmt.Errorf("lookup membership: %w", err)
	}
}

func (s *MembershipService) Join(ctx context.Context, communityID, userID int) (*models.Membership, error) {
	c, err := s.community(ctx, s.store, communityID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireNotOwner(c, userID); err != nil {
		return nil, err
	}

	joined, err := isMember(ctx, s.store, communityID, userID)
	if err != nil {
		return nil, err
	}
	if joined {
		return nil, apperr.InvalidRequest("User already joined the subreddit r/%s", c.Name)
	}

	m := &models.Membership{CommunityID: communityID, UserID: userID}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.InvalidRequest("User already joined the subreddit r/%s", c.Name)
		}
		return nil, fmt.Errorf("create membership: %w", err)
	}

	metrics.Memberships.WithLabelValues("join").Inc()
	s.publish(ctx, events.New(events.MemberJoined, communityID, map[string]any{"user_id": userID}))
	return m, nil
}

func (s *MembershipService) Leave(ctx context.Context, communityID, userID int) (*models.Membership, error) {
	c, err := s.community(ctx, s.store, communityID)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireNotOwner(c, userID); err != nil {
		return nil, err
	}

	notMember := apperr.InvalidRequest("User is not a member of the subreddit r/%s", c.Name)
	m, err := s.store.Membership(ctx, communityID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notMember
	}
	if err != nil {
		return nil, fmt.Errorf("lookup membership: %w", err)
	}

	n, err := s.store.DeleteMembership(ctx, communityID, userID)
	if err != nil {
		return nil, fmt.Errorf("delete membership: %w", err)
	}
	if n == 0 {
		return nil, notMember
	}

	metrics.Memberships.WithLabelValues("leave").Inc()
	s.publish(ctx, events.New(events.MemberLeft, communityID, map[string]any{"user_id": userID}))
	return m, nil
}

// ListMembers returns the community's members in join order with their count.
func (s *MembershipService) ListMembers(ctx context.Context, communityID int) ([]models.Membership, int64, error) {
	if _, err := s.community(ctx, s.store, communityID); err != nil {
		return nil, 0, err
	}
	return s.store.ListMembers(ctx, communityID)
}
