package feed

import (
	"context"
	"sync"

	"github.com/sakif/blogger-web/internal/model"
)

// LikeState tracks one post's like count and the viewer's own like flag,
// with optimistic toggling.
//
// The like flag is never stored anywhere: it is derived by checking whether
// the viewer's ID appears in the post's liker set. An anonymous viewer
// (viewerID 0) is never "liked" and never triggers a request.
//
// TOGGLE SERIALIZATION:
// A pending flag serializes toggles for this post. While a toggle's round
// trip is in flight, further Toggle calls are no-ops; toggles on other posts
// (other LikeState values) are fully independent.
type LikeState struct {
	mu       sync.Mutex
	src      LikeSource
	postID   int
	viewerID int
	likes    int
	liked    bool
	pending  bool

	// onToggle, when set, receives the refreshed post after a successful
	// toggle so list-level state can be updated without a full refetch.
	onToggle func(model.Post)
}

// NewLikeState creates the like state for one post as seen by one viewer.
// initialLikes is the count from the post entity already on hand; viewerID 0
// means anonymous. onToggle may be nil.
func NewLikeState(src LikeSource, postID, initialLikes, viewerID int, onToggle func(model.Post)) *LikeState {
	return &LikeState{
		src:      src,
		postID:   postID,
		likes:    initialLikes,
		viewerID: viewerID,
		onToggle: onToggle,
	}
}

// Refresh derives the viewer's like flag from the current liker set.
// Call it once after construction. For an anonymous viewer it resets the
// flag and issues no request. On error the flag falls back to false, which
// is the safe prior state.
func (s *LikeState) Refresh(ctx context.Context) error {
	if s.viewerID == 0 {
		s.mu.Lock()
		s.liked = false
		s.mu.Unlock()
		return nil
	}

	users, err := s.src.PostLikes(ctx, s.postID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.liked = false
		return err
	}
	s.liked = containsUser(users, s.viewerID)
	return nil
}

// Toggle flips the viewer's like on the post.
//
// It reports whether a toggle was actually performed: (false, nil) is a
// deliberate no-op (anonymous viewer, or a toggle already in flight),
// (false, err) means the request failed and the optimistic flip has been
// reverted. The caller decides whether a failure is surfaced to the user.
//
// On success the like count is replaced with the server's authoritative
// value and the like flag is re-derived from a fresh liker set, which
// self-corrects any divergence between the optimistic flip and true server
// state (stale initial fetch, race with another session). A failure of that
// follow-up fetch is not fatal: the toggle itself committed, so the
// optimistic flag stands until the next refresh.
func (s *LikeState) Toggle(ctx context.Context) (bool, error) {
	s.mu.Lock()
	if s.viewerID == 0 || s.pending {
		s.mu.Unlock()
		return false, nil
	}
	s.pending = true
	s.liked = !s.liked // optimistic flip, reverted on failure
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.pending = false
		s.mu.Unlock()
	}()

	post, err := s.src.ToggleLike(ctx, s.postID)
	if err != nil {
		s.mu.Lock()
		s.liked = !s.liked
		s.mu.Unlock()
		return false, err
	}

	s.mu.Lock()
	s.likes = post.Likes
	s.mu.Unlock()

	if users, err := s.src.PostLikes(ctx, s.postID); err == nil {
		liked := containsUser(users, s.viewerID)
		s.mu.Lock()
		s.liked = liked
		s.mu.Unlock()
	}

	if s.onToggle != nil {
		s.onToggle(*post)
	}
	return true, nil
}

// Likes returns the last known like count.
func (s *LikeState) Likes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.likes
}

// Liked reports whether the viewer currently likes the post.
func (s *LikeState) Liked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.liked
}

// Pending reports whether a toggle round trip is in flight.
func (s *LikeState) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func containsUser(users []model.User, id int) bool {
	for _, u := range users {
		if u.ID == id {
			return true
		}
	}
	return false
}
