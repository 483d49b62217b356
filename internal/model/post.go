package model

import "time"

// Post is a single blog post. Content is an HTML fragment produced by the
// backend's rich-text pipeline; the render package turns it into plain-text
// excerpts for list views.
//
// Likes and Comments are eventually-consistent counters. They are only as
// fresh as the last successful fetch or mutation and are never adjusted
// locally beyond that.
type Post struct {
	ID        int       `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
}

// PostList is the backend's paginated feed envelope.
// User is only present on by-user feeds, where the backend includes the
// profile the posts belong to.
type PostList struct {
	Data     []Post `json:"data"`
	Total    int    `json:"total"`
	Page     int    `json:"page"`
	LastPage int    `json:"lastPage"`
	User     *User  `json:"user,omitempty"`
}
