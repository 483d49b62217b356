// Package feed holds the state-synchronization layer between the rendered UI
// and the blog backend: per-post like state, per-post comment threads,
// paginated post collections, and avatar resolution.
//
// Each unit owns one piece of state that must stay consistent with the
// backend under overlapping requests. They are independent of each other and
// talk only to a Source, never to HTTP directly.
//
// CONCURRENCY MODEL:
// Every unit is safe for concurrent use. Network calls happen outside the
// lock, so a slow backend never blocks readers; the rules for which in-flight
// result may be applied (pending flags, fetch sequence numbers) are what the
// individual types document.
package feed

import (
	"context"

	"github.com/sakif/blogger-web/internal/model"
)

// LikeSource is what LikeState needs from the backend.
//
// CONSUMER-SIDE INTERFACES:
// These interfaces live here, next to the code that calls them, rather than
// in the backend package. The backend client satisfies all of them; tests
// substitute small hand-written mocks.
type LikeSource interface {
	// ToggleLike flips the viewer's like and returns the refreshed post.
	ToggleLike(ctx context.Context, postID int) (*model.Post, error)
	// PostLikes returns the users who currently like the post.
	PostLikes(ctx context.Context, postID int) ([]model.User, error)
}

// CommentSource is what CommentFeed needs from the backend.
type CommentSource interface {
	Comments(ctx context.Context, postID int) ([]model.Comment, error)
	CreateComment(ctx context.Context, postID int, content string) (*model.Comment, error)
}

// PostSource is what the post collections need from the backend.
type PostSource interface {
	RecommendedPosts(ctx context.Context, page, limit int) (*model.PostList, error)
	MostLikedPosts(ctx context.Context, limit int) (*model.PostList, error)
	SearchPosts(ctx context.Context, query string) (*model.PostList, error)
	PostsByUser(ctx context.Context, userID, page, limit int) (*model.PostList, error)
}

// UserSource is what AvatarResolver needs from the backend.
type UserSource interface {
	User(ctx context.Context, id int) (*model.User, error)
}

// Source is the full slice of the backend API the feed layer consumes.
// *backend.Client satisfies it.
type Source interface {
	LikeSource
	CommentSource
	PostSource
	UserSource
}
