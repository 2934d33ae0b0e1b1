package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/emilythestrangee/subreddit/backend/internal/models"
	"github.com/emilythestrangee/subreddit/backend/internal/vote"
)

var _ Store = (*Memory)(nil)

// Memory is a Store kept in process memory. Transactions run serially against
// a copy of the data that replaces the live copy on commit.
type Memory struct {
	mu   *sync.Mutex
	d    *memData
	inTx bool
}

type memData struct {
	seq         int
	users       map[int]models.User
	communities map[int]models.Community
	memberships map[int]models.Membership
	posts       map[int]models.Post
	media       map[int]models.Media
	votes       map[int]models.PostVote
}

func NewMemory() *Memory {
	return &Memory{
		mu: &sync.Mutex{},
		d: &memData{
			users:       map[int]models.User{},
			communities: map[int]models.Community{},
			memberships: map[int]models.Membership{},
			posts:       map[int]models.Post{},
			media:       map[int]models.Media{},
			votes:       map[int]models.PostVote{},
		},
	}
}

func (d *memData) clone() *memData {
	return &memData{
		seq:         d.seq,
		users:       maps.Clone(d.users),
		communities: maps.Clone(d.communities),
		memberships: maps.Clone(d.memberships),
		posts:       maps.Clone(d.posts),
		media:       maps.Clone(d.media),
		votes:       maps.Clone(d.votes),
	}
}

func (d *memData) nextID() int {
	d.seq++
	return d.seq
}

func (m *Memory) lock() func() {
	if m.inTx {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

func (m *Memory) Tx(ctx context.Context, fn func(tx Store) error) error {
	if m.inTx {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &Memory{mu: m.mu, d: m.d.clone(), inTx: true}
	if err := fn(tx); err != nil {
		return err
	}
	m.d = tx.d
	return nil
}

func now() time.Time { return time.Now().UTC() }

func duplicate(what string) error {
	return fmt.Errorf("%w: %s", ErrDuplicate, what)
}

func sortedValues[T any](src map[int]T, keep func(T) bool) []T {
	keys := slices.Sorted(maps.Keys(src))
	out := []T{}
	for _, k := range keys {
		if v := src[k]; keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// Users

func (m *Memory) CreateUser(_ context.Context, u *models.User) error {
	defer m.lock()()
	for _, o := range m.d.users {
		if o.Username == u.Username {
			return duplicate("users.username")
		}
		if o.Email == u.Email {
			return duplicate("users.email")
		}
	}
	u.ID = m.d.nextID()
	u.CreatedAt, u.UpdatedAt = now(), now()
	m.d.users[u.ID] = *u
	return nil
}

func (m *Memory) UpdateUser(_ context.Context, u *models.User) error {
	defer m.lock()()
	if _, ok := m.d.users[u.ID]; !ok {
		return ErrNotFound
	}
	for _, o := range m.d.users {
		if o.ID == u.ID {
			continue
		}
		if o.Username == u.Username {
			return duplicate("users.username")
		}
		if o.Email == u.Email {
			return duplicate("users.email")
		}
	}
	u.UpdatedAt = now()
	m.d.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByID(_ context.Context, id int) (*models.User, error) {
	defer m.lock()()
	u, ok := m.d.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*models.User, error) {
	defer m.lock()()
	for _, u := range m.d.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) UserByEmail(_ context.Context, email string) (*models.User, error) {
	defer m.lock()()
	for _, u := range m.d.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

// Communities

func (m *Memory) CreateCommunity(_ context.Context, c *models.Community) error {
	defer m.lock()()
	for _, o := range m.d.communities {
		if o.Name == c.Name {
			return duplicate("communities.name")
		}
	}
	c.ID = m.d.nextID()
	c.CreatedAt, c.UpdatedAt = now(), now()
	stored := *c
	stored.Owner = nil
	m.d.communities[c.ID] = stored
	return nil
}

func (m *Memory) UpdateCommunity(_ context.Context, c *models.Community) error {
	defer m.lock()()
	cur, ok := m.d.communities[c.ID]
	if !ok {
		return ErrNotFound
	}
	for _, o := range m.d.communities {
		if o.ID != c.ID && o.Name == c.Name {
			return duplicate("communities.name")
		}
	}
	cur.Name, cur.Description, cur.AvatarURL = c.Name, c.Description, c.AvatarURL
	cur.UpdatedAt = now()
	c.UpdatedAt = cur.UpdatedAt
	m.d.communities[c.ID] = cur
	return nil
}

func (m *Memory) DeleteCommunity(_ context.Context, id int) (int64, error) {
	defer m.lock()()
	for pid, p := range m.d.posts {
		if p.CommunityID == id {
			m.deletePostLocked(pid)
		}
	}
	for mid, ms := range m.d.memberships {
		if ms.CommunityID == id {
			delete(m.d.memberships, mid)
		}
	}
	if _, ok := m.d.communities[id]; !ok {
		return 0, nil
	}
	delete(m.d.communities, id)
	return 1, nil
}

func (m *Memory) CommunityByID(_ context.Context, id int) (*models.Community, error) {
	defer m.lock()()
	c, ok := m.d.communities[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (m *Memory) CommunityByName(_ context.Context, name string) (*models.Community, error) {
	defer m.lock()()
	for _, c := range m.d.communities {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func newestFirst(a, b models.Community) int {
	return cmp.Compare(b.ID, a.ID)
}

func (m *Memory) ListCommunities(_ context.Context) ([]models.CommunitySummary, int64, error) {
	defer m.lock()()
	cs := sortedValues(m.d.communities, func(models.Community) bool { return true })
	slices.SortFunc(cs, newestFirst)

	out := make([]models.CommunitySummary, 0, len(cs))
	for _, c := range cs {
		s := models.CommunitySummary{Community: c}
		for _, ms := range m.d.memberships {
			if ms.CommunityID == c.ID {
				s.MemberCount++
			}
		}
		for _, p := range m.d.posts {
			if p.CommunityID == c.ID {
				s.PostCount++
			}
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (m *Memory) CommunitiesOwnedBy(_ context.Context, userID int) ([]models.Community, int64, error) {
	defer m.lock()()
	out := sortedValues(m.d.communities, func(c models.Community) bool { return c.OwnerID == userID })
	slices.SortFunc(out, newestFirst)
	return out, int64(len(out)), nil
}

func (m *Memory) CommunitiesJoinedBy(_ context.Context, userID int) ([]models.Community, int64, error) {
	defer m.lock()()
	joined := sortedValues(m.d.memberships, func(ms models.Membership) bool { return ms.UserID == userID })
	out := make([]models.Community, 0, len(joined))
	for i := len(joined) - 1; i >= 0; i-- {
		if c, ok := m.d.communities[joined[i].CommunityID]; ok {
			out = append(out, c)
		}
	}
	return out, int64(len(out)), nil
}

// Memberships

func (m *Memory) CreateMembership(_ context.Context, ms *models.Membership) error {
	defer m.lock()()
	for _, o := range m.d.memberships {
		if o.CommunityID == ms.CommunityID && o.UserID == ms.UserID {
			return duplicate("memberships.uk_community_user")
		}
	}
	ms.ID = m.d.nextID()
	ms.CreatedAt = now()
	stored := *ms
	stored.User = nil
	m.d.memberships[ms.ID] = stored
	return nil
}

func (m *Memory) DeleteMembership(_ context.Context, communityID, userID int) (int64, error) {
	defer m.lock()()
	var n int64
	for id, o := range m.d.memberships {
		if o.CommunityID == communityID && o.UserID == userID {
			delete(m.d.memberships, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Membership(_ context.Context, communityID, userID int) (*models.Membership, error) {
	defer m.lock()()
	for _, o := range m.d.memberships {
		if o.CommunityID == communityID && o.UserID == userID {
			return &o, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListMembers(_ context.Context, communityID int) ([]models.Membership, int64, error) {
	defer m.lock()()
	out := sortedValues(m.d.memberships, func(ms models.Membership) bool { return ms.CommunityID == communityID })
	for i := range out {
		if u, ok := m.d.users[out[i].UserID]; ok {
			out[i].User = &u
		}
	}
	return out, int64(len(out)), nil
}

// Posts

func (m *Memory) CreatePost(_ context.Context, p *models.Post) error {
	defer m.lock()()
	if m.slugTakenLocked(p.CommunityID, p.Slug, 0) {
		return duplicate("posts.uk_community_slug")
	}
	p.ID = m.d.nextID()
	p.CreatedAt, p.UpdatedAt = now(), now()
	for i := range p.Media {
		p.Media[i].ID = m.d.nextID()
		p.Media[i].PostID = p.ID
		p.Media[i].CreatedAt = p.CreatedAt
		m.d.media[p.Media[i].ID] = p.Media[i]
	}
	stored := *p
	stored.Media, stored.Author = nil, nil
	m.d.posts[p.ID] = stored
	return nil
}

func (m *Memory) UpdatePost(_ context.Context, p *models.Post) error {
	defer m.lock()()
	cur, ok := m.d.posts[p.ID]
	if !ok {
		return ErrNotFound
	}
	if m.slugTakenLocked(cur.CommunityID, p.Slug, p.ID) {
		return duplicate("posts.uk_community_slug")
	}
	cur.Title, cur.Slug, cur.Content = p.Title, p.Slug, p.Content
	cur.UpdatedAt = now()
	p.UpdatedAt = cur.UpdatedAt
	m.d.posts[p.ID] = cur
	return nil
}

func (m *Memory) DeletePost(_ context.Context, id int) (int64, error) {
	defer m.lock()()
	return m.deletePostLocked(id), nil
}

func (m *Memory) deletePostLocked(id int) int64 {
	for vid, v := range m.d.votes {
		if v.PostID == id {
			delete(m.d.votes, vid)
		}
	}
	for mid, md := range m.d.media {
		if md.PostID == id {
			delete(m.d.media, mid)
		}
	}
	if _, ok := m.d.posts[id]; !ok {
		return 0
	}
	delete(m.d.posts, id)
	return 1
}

// hydrate fills the associations the gorm store preloads.
func (m *Memory) hydrate(p models.Post) models.Post {
	p.Media = sortedValues(m.d.media, func(md models.Media) bool { return md.PostID == p.ID })
	if u, ok := m.d.users[p.AuthorID]; ok {
		p.Author = &u
	}
	return p
}

func (m *Memory) PostByID(_ context.Context, id int) (*models.Post, error) {
	defer m.lock()()
	p, ok := m.d.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = m.hydrate(p)
	return &p, nil
}

func (m *Memory) PostBySlug(_ context.Context, communityID int, slug string) (*models.Post, error) {
	defer m.lock()()
	for _, p := range m.d.posts {
		if p.CommunityID == communityID && p.Slug == slug {
			p = m.hydrate(p)
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) slugTakenLocked(communityID int, slug string, exceptPostID int) bool {
	for _, p := range m.d.posts {
		if p.CommunityID == communityID && p.Slug == slug && p.ID != exceptPostID {
			return true
		}
	}
	return false
}

func (m *Memory) SlugExists(_ context.Context, communityID int, slug string, exceptPostID int) (bool, error) {
	defer m.lock()()
	return m.slugTakenLocked(communityID, slug, exceptPostID), nil
}

func (m *Memory) findPosts(keep func(models.Post) bool) ([]models.Post, int64, error) {
	out := sortedValues(m.d.posts, keep)
	slices.Reverse(out)
	for i := range out {
		out[i] = m.hydrate(out[i])
	}
	return out, int64(len(out)), nil
}

func (m *Memory) PostsByCommunity(_ context.Context, communityID int) ([]models.Post, int64, error) {
	defer m.lock()()
	return m.findPosts(func(p models.Post) bool { return p.CommunityID == communityID })
}

func (m *Memory) PostsByAuthor(_ context.Context, userID int) ([]models.Post, int64, error) {
	defer m.lock()()
	return m.findPosts(func(p models.Post) bool { return p.AuthorID == userID })
}

func (m *Memory) PostsVotedBy(_ context.Context, userID int, d vote.Direction) ([]models.Post, int64, error) {
	defer m.lock()()
	voted := map[int]bool{}
	for _, v := range m.d.votes {
		if v.UserID == userID && v.Direction == d {
			voted[v.PostID] = true
		}
	}
	return m.findPosts(func(p models.Post) bool { return voted[p.ID] })
}

func (m *Memory) ReplaceMedia(_ context.Context, postID int, urls []string) ([]models.Media, error) {
	defer m.lock()()
	for id, md := range m.d.media {
		if md.PostID == postID {
			delete(m.d.media, id)
		}
	}
	out := make([]models.Media, 0, len(urls))
	for _, u := range urls {
		md := models.Media{ID: m.d.nextID(), PostID: postID, URL: u, CreatedAt: now()}
		m.d.media[md.ID] = md
		out = append(out, md)
	}
	return out, nil
}

// Votes

func (m *Memory) VoteForUpdate(_ context.Context, postID, userID int) (*models.PostVote, error) {
	defer m.lock()()
	for _, v := range m.d.votes {
		if v.PostID == postID && v.UserID == userID {
			return &v, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) CreateVote(_ context.Context, v *models.PostVote) error {
	defer m.lock()()
	for _, o := range m.d.votes {
		if o.PostID == v.PostID && o.UserID == v.UserID {
			return duplicate("post_votes.uk_post_user")
		}
	}
	v.ID = m.d.nextID()
	v.CreatedAt, v.UpdatedAt = now(), now()
	m.d.votes[v.ID] = *v
	return nil
}

func (m *Memory) UpdateVoteDirection(_ context.Context, id int, d vote.Direction) error {
	defer m.lock()()
	v, ok := m.d.votes[id]
	if !ok {
		return ErrNotFound
	}
	v.Direction = d
	v.UpdatedAt = now()
	m.d.votes[id] = v
	return nil
}

func (m *Memory) DeleteVote(_ context.Context, id int) error {
	defer m.lock()()
	delete(m.d.votes, id)
	return nil
}

func (m *Memory) AdjustCounters(_ context.Context, postID, dUp, dDown int) error {
	defer m.lock()()
	p, ok := m.d.posts[postID]
	if !ok {
		return ErrNotFound
	}
	if p.Upvotes+dUp < 0 || p.Downvotes+dDown < 0 {
		return fmt.Errorf("post %d counters would go negative", postID)
	}
	p.Upvotes += dUp
	p.Downvotes += dDown
	m.d.posts[postID] = p
	return nil
}

func (m *Memory) CountVotes(_ context.Context, postID int, d vote.Direction) (int64, error) {
	defer m.lock()()
	var n int64
	for _, v := range m.d.votes {
		if v.PostID == postID && v.Direction == d {
			n++
		}
	}
	return n, nil
}
