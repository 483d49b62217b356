package model

import "time"

// Comment is one entry in a post's comment thread. Post holds the owning
// post's ID. CreatedAt is server-assigned, which makes it effectively unique
// per post and safe to sort on.
type Comment struct {
	ID        int       `json:"id"`
	Content   string    `json:"content"`
	Author    User      `json:"author"`
	Post      int       `json:"post"`
	CreatedAt time.Time `json:"createdAt"`
}
