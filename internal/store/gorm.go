package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

const pgUniqueViolation = "23505"

var _ Store = (*gormStore)(nil)

type gormStore struct {
	db *gorm.DB
}

// NewGorm returns a Store backed by db.
func NewGorm(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) Tx(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

func (s *gormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// translate maps driver and gorm errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

func withMedia(db *gorm.DB) *gorm.DB {
	return db.Preload("Author").Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_media.id ASC")
	})
}

// Users

func (s *gormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *gormStore) UpdateUser(ctx context.Context, u *models.User) error {
	err := s.conn(ctx).Model(u).
		Select("username", "email", "password_hash", "display_name", "bio", "gender", "avatar_url", "email_verified").
		Updates(u).Error
	return translate(err)
}

func (s *gormStore) UserByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *gormStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *gormStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// Communities

func (s *gormStore) CreateCommunity(ctx context.Context, c *models.Community) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(c).Error)
}

func (s *gormStore) UpdateCommunity(ctx context.Context, c *models.Community) error {
	err := s.conn(ctx).Model(c).Select("name", "description", "avatar_url").Updates(c).Error
	return translate(err)
}

func (s *gormStore) DeleteCommunity(ctx context.Context, id int) (int64, error) {
	db := s.conn(ctx)
	postIDs := db.Model(&models.Post{}).Select("id").Where("community_id = ?", id)

	if err := db.Where("post_id IN (?)", postIDs).Delete(&models.PostVote{}).Error; err != nil {
		return 0, fmt.Errorf("delete votes: %w", err)
	}
	if err := db.Where("post_id IN (?)", postIDs).Delete(&models.Media{}).Error; err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}
	if err := db.Where("community_id = ?", id).Delete(&models.Post{}).Error; err != nil {
		return 0, fmt.Errorf("delete posts: %w", err)
	}
	if err := db.Where("community_id = ?", id).Delete(&models.Membership{}).Error; err != nil {
		return 0, fmt.Errorf("delete memberships: %w", err)
	}
	res := db.Delete(&models.Community{}, id)
	return res.RowsAffected, translate(res.Error)
}

func (s *gormStore) CommunityByID(ctx context.Context, id int) (*models.Community, error) {
	var c models.Community
	if err := s.conn(ctx).First(&c, id).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *gormStore) CommunityByName(ctx context.Context, name string) (*models.Community, error) {
	var c models.Community
	if err := s.conn(ctx).Where("name = ?", name).First(&c).Error; err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *gormStore) ListCommunities(ctx context.Context) ([]models.CommunitySummary, int64, error) {
	rows := []models.CommunitySummary{}
	err := s.conn(ctx).Model(&models.Community{}).
		Select(`communities.*,
			(SELECT COUNT(*) FROM memberships WHERE memberships.community_id = communities.id) AS member_count,
			(SELECT COUNT(*) FROM posts WHERE posts.community_id = communities.id) AS post_count`).
		Order("communities.created_at DESC, communities.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return rows, int64(len(rows)), nil
}

func (s *gormStore) CommunitiesOwnedBy(ctx context.Context, userID int) ([]models.Community, int64, error) {
	out := []models.Community{}
	err := s.conn(ctx).Where("owner_id = ?", userID).Order("created_at DESC, id DESC").Find(&out).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, int64(len(out)), nil
}

func (s *gormStore) CommunitiesJoinedBy(ctx context.Context, userID int) ([]models.Community, int64, error) {
	out := []models.Community{}
	err := s.conn(ctx).
		Joins("JOIN memberships ON memberships.community_id = communities.id").
		Where("memberships.user_id = ?", userID).
		Order("memberships.created_at DESC, memberships.id DESC").
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, int64(len(out)), nil
}

// Memberships

func (s *gormStore) CreateMembership(ctx context.Context, m *models.Membership) error {
	return translate(s.conn(ctx).Omit(clause.Associations).Create(m).Error)
}

func (s *gormStore) DeleteMembership(ctx context.Context, communityID, userID int) (int64, error) {
	res := s.conn(ctx).Where("community_id = ? AND user_id = ?", communityID, userID).Delete(&models.Membership{})
	return res.RowsAffected, translate(res.Error)
}

func (s *gormStore) Membership(ctx context.Context, communityID, userID int) (*models.Membership, error) {
	var m models.Membership
	err := s.conn(ctx).Where("community_id = ? AND user_id = ?", communityID, userID).First(&m).Error
	if err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *gormStore) ListMembers(ctx context.Context, communityID int) ([]models.Membership, int64, error) {
	out := []models.Membership{}
	err := s.conn(ctx).Preload("User").
		Where("community_id = ?", communityID).
		Order("created_at ASC, id ASC").
		Find(&out).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return out, int64(len(out)), nil
}

// Posts

func (s *gormStore) CreatePost(ctx context.Context, p *models.Post) error {
	return translate(s.conn(ctx).Omit("Author").Create(p).Error)
}

func (s *gormStore) UpdatePost(ctx context.Context, p *models.Post) error {
	err := s.conn(ctx).Model(p).Select("title", "slug", "content").Updates(p).Error
	return translate(err)
}

func (s *gormStore) DeletePost(ctx context.Context, id int) (int64, error) {
	db := s.conn(ctx)
	if err := db.Where("post_id = ?", id).Delete(&models.PostVote{}).Error; err != nil {
		return 0, fmt.Errorf("delete votes: %w", err)
	}
	if err := db.Where("post_id = ?", id).Delete(&models.Media{}).Error; err != nil {
		return 0, fmt.Errorf("delete media: %w", err)
	}
	res := db.Delete(&models.Post{}, id)
	return res.RowsAffected, translate(res.Error)
}

func (s *gormStore) PostByID(ctx context.Context, id int) (*models.Post, error) {
	var p models.Post
	if err := withMedia(s.conn(ctx)).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *gormStore) PostBySlug(ctx context.Context, communityID int, slug string) (*models.Post, error) {
	var p models.Post
	err := withMedia(s.conn(ctx)).Where("community_id = ? AND slug = ?", communityID, slug).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *gormStore) SlugExists(ctx context.Context, communityID int, slug string, exceptPostID int) (bool, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Post{}).
		Where("community_id = ? AND slug = ? AND id <> ?", communityID, slug, exceptPostID).
		Count(&n).Error
	return n > 0, translate(err)
}

func (s *gormStore) PostsByCommunity(ctx context.Context, communityID int) ([]models.Post, int64, error) {
	return s.findPosts(withMedia(s.conn(ctx)).Where("community_id = ?", communityID))
}

func (s *gormStore) PostsByAuthor(ctx context.Context, userID int) ([]models.Post, int64, error) {
	return s.findPosts(withMedia(s.conn(ctx)).Where("author_id = ?", userID))
}

func (s *gormStore) PostsVotedBy(ctx context.Context, userID int, d vote.Direction) ([]models.Post, int64, error) {
	q := withMedia(s.conn(ctx)).
		Joins("JOIN post_votes ON post_votes.post_id = posts.id").
		Where("post_votes.user_id = ? AND post_votes.vote_type = ?", userID, d)
	return s.findPosts(q)
}

func (s *gormStore) findPosts(q *gorm.DB) ([]models.Post, int64, error) {
	out := []models.Post{}
	if err := q.Order("posts.created_at DESC, posts.id DESC").Find(&out).Error; err != nil {
		return nil, 0, translate(err)
	}
	return out, int64(len(out)), nil
}

func (s *gormStore) ReplaceMedia(ctx context.Context, postID int, urls []string) ([]models.Media, error) {
	db := s.conn(ctx)
	if err := db.Where("post_id = ?", postID).Delete(&models.Media{}).Error; err != nil {
		return nil, fmt.Errorf("delete media: %w", err)
	}
	media := make([]models.Media, 0, len(urls))
	for _, u := range urls {
		media = append(media, models.Media{PostID: postID, URL: u})
	}
	if len(media) == 0 {
		return media, nil
	}
	if err := db.Create(&media).Error; err != nil {
		return nil, fmt.Errorf("insert media: %w", translate(err))
	}
	return media, nil
}

// Votes

func (s *gormStore) VoteForUpdate(ctx context.Context, postID, userID int) (*models.PostVote, error) {
	var v models.PostVote
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		First(&v).Error
	if err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (s *gormStore) CreateVote(ctx context.Context, v *models.PostVote) error {
	return translate(s.conn(ctx).Create(v).Error)
}

func (s *gormStore) UpdateVoteDirection(ctx context.Context, id int, d vote.Direction) error {
	return translate(s.conn(ctx).Model(&models.PostVote{}).Where("id = ?", id).Update("vote_type", d).Error)
}

func (s *gormStore) DeleteVote(ctx context.Context, id int) error {
	return translate(s.conn(ctx).Delete(&models.PostVote{}, id).Error)
}

func (s *gormStore) AdjustCounters(ctx context.Context, postID, dUp, dDown int) error {
	updates := map[string]any{}
	if dUp != 0 {
		updates["upvotes"] = gorm.Expr("upvotes + ?", dUp)
	}
	if dDown != 0 {
		updates["downvotes"] = gorm.Expr("downvotes + ?", dDown)
	}
	if len(updates) == 0 {
		return nil
	}
	res := s.conn(ctx).Model(&models.Post{}).Where("id = ?", postID).UpdateColumns(updates)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) CountVotes(ctx context.Context, postID int, d vote.Direction) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.PostVote{}).Where("post_id = ? AND vote_type = ?", postID, d).Count(&n).Error
	return n, translate(err)
}
