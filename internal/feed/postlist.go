package feed

import (
	"context"
	"strings"
	"sync"

	"github.com/sakif/blogger-web/internal/model"
)

// Default page sizes for the paginated feeds.
const (
	DefaultPageSize     = 5
	DefaultMostLikedMax = 3
)

// PostList is a paginated post collection (recommended feed or a user's
// posts). Items always correspond to the most recently *completed* fetch
// for the current page.
//
// STALE-PAGE GUARD:
// GoToPage updates the current page synchronously but the fetch resolves
// later, so a fast double page-change produces two in-flight requests that
// may resolve in either order. Every fetch is tagged with a sequence number
// taken under the lock; a response whose sequence is no longer the latest is
// discarded. A sequence rather than the page number, so that going
// 2 -> 5 -> 2 cannot let the first fetch for page 2 overwrite the second.
type PostList struct {
	mu       sync.Mutex
	fetch    func(ctx context.Context, page, limit int) (*model.PostList, error)
	pageSize int

	items      []model.Post
	page       int
	totalPages int
	loading    bool
	owner      *model.User
	seq        uint64
}

// NewRecommended creates the recommended-feed collection.
func NewRecommended(src PostSource, pageSize int) *PostList {
	return newPostList(src.RecommendedPosts, pageSize)
}

// NewByUser creates the collection of one user's posts. The owner profile
// included in the backend response is captured and exposed via Owner.
func NewByUser(src PostSource, userID, pageSize int) *PostList {
	return newPostList(func(ctx context.Context, page, limit int) (*model.PostList, error) {
		return src.PostsByUser(ctx, userID, page, limit)
	}, pageSize)
}

func newPostList(fetch func(ctx context.Context, page, limit int) (*model.PostList, error), pageSize int) *PostList {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &PostList{
		fetch:      fetch,
		pageSize:   pageSize,
		page:       1,
		totalPages: 1,
	}
}

// GoToPage moves to page n and fetches it. Values below 1 are treated as 1.
//
// On success items and totalPages reflect the response and the current page
// is clamped into [1, totalPages]. On error the previous items survive as
// the last known good state. A nil return with unchanged state means the
// fetch was superseded by a newer GoToPage before it resolved.
func (l *PostList) GoToPage(ctx context.Context, n int) error {
	if n < 1 {
		n = 1
	}

	l.mu.Lock()
	l.page = n
	l.loading = true
	l.seq++
	seq := l.seq
	l.mu.Unlock()

	list, err := l.fetch(ctx, n, l.pageSize)

	l.mu.Lock()
	defer l.mu.Unlock()
	if seq != l.seq {
		// A newer fetch owns the state now; drop this response entirely.
		return nil
	}
	l.loading = false
	if err != nil {
		return err
	}

	l.items = list.Data
	if l.items == nil {
		l.items = []model.Post{}
	}
	l.totalPages = list.LastPage
	if l.totalPages < 1 {
		l.totalPages = 1
	}
	if l.page > l.totalPages {
		l.page = l.totalPages
	}
	if list.User != nil {
		l.owner = list.User
	}
	return nil
}

// Refresh refetches the current page.
func (l *PostList) Refresh(ctx context.Context) error {
	l.mu.Lock()
	page := l.page
	l.mu.Unlock()
	return l.GoToPage(ctx, page)
}

// ApplyPost merges a refreshed post entity into the collection, matching by
// ID. LikeState's onToggle callback feeds this so a like shows up in list
// counters without a refetch. Unknown IDs are ignored.
func (l *PostList) ApplyPost(p model.Post) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := range l.items {
		if l.items[i].ID == p.ID {
			l.items[i] = p
			return
		}
	}
}

// Items returns a copy of the current page's posts.
func (l *PostList) Items() []model.Post {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.Post, len(l.items))
	copy(out, l.items)
	return out
}

// Page returns the current page number.
func (l *PostList) Page() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.page
}

// TotalPages returns the page count from the last completed fetch.
func (l *PostList) TotalPages() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalPages
}

// Loading reports whether a fetch is in flight.
func (l *PostList) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Owner returns the profile a by-user collection belongs to, or nil.
func (l *PostList) Owner() *model.User {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.owner
}

// MostLiked is the fixed-size most-liked rail. No pagination.
type MostLiked struct {
	mu      sync.Mutex
	src     PostSource
	limit   int
	posts   []model.Post
	loading bool
}

// NewMostLiked creates the rail; limit defaults to 3.
func NewMostLiked(src PostSource, limit int) *MostLiked {
	if limit <= 0 {
		limit = DefaultMostLikedMax
	}
	return &MostLiked{src: src, limit: limit}
}

// Load fetches the top posts. On error the previous posts are kept.
func (m *MostLiked) Load(ctx context.Context) error {
	m.mu.Lock()
	m.loading = true
	m.mu.Unlock()

	list, err := m.src.MostLikedPosts(ctx, m.limit)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.loading = false
	if err != nil {
		return err
	}
	m.posts = list.Data
	if m.posts == nil {
		m.posts = []model.Post{}
	}
	return nil
}

// ApplyPost merges a refreshed post into the rail, matching by ID.
func (m *MostLiked) ApplyPost(p model.Post) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.posts {
		if m.posts[i].ID == p.ID {
			m.posts[i] = p
			return
		}
	}
}

// Posts returns a copy of the rail.
func (m *MostLiked) Posts() []model.Post {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Post, len(m.posts))
	copy(out, m.posts)
	return out
}

// SearchResults holds one query's results. Search is not paginated.
type SearchResults struct {
	mu      sync.Mutex
	src     PostSource
	query   string
	posts   []model.Post
	loading bool
}

// NewSearchResults creates an empty result set.
func NewSearchResults(src PostSource) *SearchResults {
	return &SearchResults{src: src}
}

// SearchByQuery replaces the results with those for q. A blank or
// whitespace-only query clears the results without touching the network.
func (s *SearchResults) SearchByQuery(ctx context.Context, q string) error {
	trimmed := strings.TrimSpace(q)

	s.mu.Lock()
	s.query = trimmed
	if trimmed == "" {
		s.posts = []model.Post{}
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()

	list, err := s.src.SearchPosts(ctx, trimmed)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return err
	}
	s.posts = list.Data
	if s.posts == nil {
		s.posts = []model.Post{}
	}
	return nil
}

// Query returns the trimmed query behind the current results.
func (s *SearchResults) Query() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.query
}

// Posts returns a copy of the results.
func (s *SearchResults) Posts() []model.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Post, len(s.posts))
	copy(out, s.posts)
	return out
}
