package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/emilythestrangee/subreddit/backend/internal/apperr"
	"github.com/emilythestrangee/subreddit/backend/internal/authz"
	"github.com/emilythestrangee/subreddit/backend/internal/events"
	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/store"
	"github.com/emilythestrangee/subreddit/backend/internal/telemetry"
)

// CommunityService owns community metadata and ownership.
type CommunityService struct {
	base
}

func validateCommunityName(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.InvalidRequest("Subreddit name is required")
	}
	if hasWhitespace(name) {
		return apperr.InvalidRequest("Subreddit name cannot contain whitespace")
	}
	return nil
}

// Create stores the community and the owner's membership in one transaction.
func (s *CommunityService) Create(ctx context.Context, ownerID int, in CreateCommunityInput) (*models.Community, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "CommunityService.Create",
		trace.WithAttributes(attribute.String("community.name", in.Name)))
	defer span.End()

	if err := validateCommunityName(in.Name); err != nil {
		return nil, err
	}

	c := &models.Community{
		Name:        in.Name,
		Description: in.Description,
		AvatarURL:   in.AvatarURL,
		OwnerID:     ownerID,
	}
	err := s.store.Tx(ctx, func(tx store.Store) error {
		if err := tx.CreateCommunity(ctx, c); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return apperr.Conflict("r/%s is taken", in.Name)
			}
			return fmt.Errorf("create community: %w", err)
		}
		if err := tx.CreateMembership(ctx, &models.Membership{CommunityID: c.ID, UserID: ownerID}); err != nil {
			return fmt.Errorf("create owner membership: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.CommunityCreated, c.ID, map[string]any{
		"name":     c.Name,
		"owner_id": c.OwnerID,
	}))
	return c, nil
}

// Update applies a partial update. Only the owner may change a community.
func (s *CommunityService) Update(ctx context.Context, id, actorID int, in UpdateCommunityInput) (*models.Community, error) {
	c, err := s.community(ctx, s.store, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(c, actorID); err != nil {
		return nil, err
	}

	if in.Name != nil {
		if err := validateCommunityName(*in.Name); err != nil {
			return nil, err
		}
		c.Name = *in.Name
	}
	if in.Description != nil {
		c.Description = *in.Description
	}

	if err := s.store.UpdateCommunity(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("r/%s is taken", c.Name)
		}
		return nil, fmt.Errorf("update community: %w", err)
	}

	s.publish(ctx, events.New(events.CommunityUpdated, c.ID, map[string]any{"name": c.Name}))
	return c, nil
}

// SetAvatar replaces the community avatar and returns the URL it replaced.
// An empty avatarURL removes the avatar.
func (s *CommunityService) SetAvatar(ctx context.Context, id, actorID int, avatarURL string) (*models.Community, string, error) {
	c, err := s.community(ctx, s.store, id)
	if err != nil {
		return nil, "", err
	}
	if err := authz.RequireOwner(c, actorID); err != nil {
		return nil, "", err
	}

	previous := c.AvatarURL
	c.AvatarURL = avatarURL
	if err := s.store.UpdateCommunity(ctx, c); err != nil {
		return nil, "", fmt.Errorf("update community avatar: %w", err)
	}
	return c, previous, nil
}

// Delete removes the community together with its posts, their votes and media,
// and every membership.
func (s *CommunityService) Delete(ctx context.Context, id, actorID int) error {
	ctx, span := telemetry.Tracer().Start(ctx, "CommunityService.Delete",
		trace.WithAttributes(attribute.Int("community.id", id)))
	defer span.End()

	c, err := s.community(ctx, s.store, id)
	if err != nil {
		return err
	}
	if err := authz.RequireOwner(c, actorID); err != nil {
		return err
	}

	err = s.store.Tx(ctx, func(tx store.Store) error {
		n, err := tx.DeleteCommunity(ctx, id)
		if err != nil {
			return fmt.Errorf("delete community: %w", err)
		}
		if n == 0 {
			return apperr.Infrastructure(nil, "Failed to delete subreddit r/%s", c.Name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.publish(ctx, events.New(events.CommunityDeleted, id, map[string]any{"name": c.Name}))
	return nil
}

func (s *CommunityService) GetByID(ctx context.Context, id int) (*models.Community, error) {
	return s.community(ctx, s.store, id)
}

func (s *CommunityService) GetByName(ctx context.Context, name string) (*models.Community, error) {
	return s.communityByName(ctx, s.store, name)
}

// List returns every community with member and post counts, newest first.
func (s *CommunityService) List(ctx context.Context) ([]models.CommunitySummary, int64, error) {
	return s.store.ListCommunities(ctx)
}

// OwnedBy lists the communities the user created.
func (s *CommunityService) OwnedBy(ctx context.Context, username string) ([]models.Community, int64, error) {
	u, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	return s.store.CommunitiesOwnedBy(ctx, u.ID)
}

// JoinedBy lists the communities the user is a member of, owned ones included.
func (s *CommunityService) JoinedBy(ctx context.Context, username string) ([]models.Community, int64, error) {
	u, err := s.userByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}
	return s.store.CommunitiesJoinedBy(ctx, u.ID)
}
