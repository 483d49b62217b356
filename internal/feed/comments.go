package feed

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sakif/blogger-web/internal/model"
)

// CommentFeed holds one post's comment thread plus the viewer's draft.
//
// The thread is always kept newest-first. Sorting is stable, so comments
// with equal timestamps keep the backend's order (timestamps are
// server-assigned and effectively unique per post, so ties are rare).
type CommentFeed struct {
	mu       sync.Mutex
	src      CommentSource
	postID   int
	comments []model.Comment
	draft    string
	loading  bool
}

// NewCommentFeed creates the comment state for one post.
func NewCommentFeed(src CommentSource, postID int) *CommentFeed {
	return &CommentFeed{src: src, postID: postID}
}

// Load fetches the full comment list and sorts it newest-first.
// On error the previous list is kept (last known good).
func (f *CommentFeed) Load(ctx context.Context) error {
	f.mu.Lock()
	f.loading = true
	f.mu.Unlock()

	comments, err := f.src.Comments(ctx, f.postID)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		return err
	}
	f.comments = sortNewestFirst(comments)
	return nil
}

// SetDraft replaces the viewer's draft comment.
func (f *CommentFeed) SetDraft(s string) {
	f.mu.Lock()
	f.draft = s
	f.mu.Unlock()
}

// Draft returns the current draft.
func (f *CommentFeed) Draft() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// Submit posts the draft as a new comment.
//
// A blank or whitespace-only draft is a no-op: (false, nil). After the
// backend accepts the comment the draft is cleared and the whole list is
// refetched and re-sorted rather than spliced locally, so the displayed
// thread reflects exactly what the server persisted, including comments
// other users added in the meantime. One extra round trip buys that.
//
// If creation fails the draft is kept so the viewer can retry; if only the
// refetch fails the comment is committed and (true, err) is returned with
// the previous list still on display.
func (f *CommentFeed) Submit(ctx context.Context) (bool, error) {
	f.mu.Lock()
	draft := strings.TrimSpace(f.draft)
	if draft == "" {
		f.mu.Unlock()
		return false, nil
	}
	f.loading = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.loading = false
		f.mu.Unlock()
	}()

	if _, err := f.src.CreateComment(ctx, f.postID, draft); err != nil {
		return false, err
	}

	f.mu.Lock()
	f.draft = ""
	f.mu.Unlock()

	comments, err := f.src.Comments(ctx, f.postID)
	if err != nil {
		return true, err
	}

	f.mu.Lock()
	f.comments = sortNewestFirst(comments)
	f.mu.Unlock()
	return true, nil
}

// Comments returns a copy of the thread, newest-first.
func (f *CommentFeed) Comments() []model.Comment {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Comment, len(f.comments))
	copy(out, f.comments)
	return out
}

// Loading reports whether a fetch or submit is in flight.
func (f *CommentFeed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func sortNewestFirst(comments []model.Comment) []model.Comment {
	sort.SliceStable(comments, func(i, j int) bool {
		return comments[i].CreatedAt.After(comments[j].CreatedAt)
	})
	return comments
}
