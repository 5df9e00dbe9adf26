package domain

import "time"

// PostCategory discriminates community posts.
type PostCategory string

const (
	CategoryFreeDiscussion PostCategory = "free-discussion"
	CategoryReadingShare   PostCategory = "reading-share"
	CategoryQuestion       PostCategory = "q-and-a"
	CategoryStudyGroup     PostCategory = "study-group"
)

// Categories lists the known post categories.
func Categories() []PostCategory {
	return []PostCategory{CategoryFreeDiscussion, CategoryReadingShare, CategoryQuestion, CategoryStudyGroup}
}

// Valid reports whether c is a known category.
func (c PostCategory) Valid() bool {
	for _, k := range Categories() {
		if c == k {
			return true
		}
	}
	return false
}

// ReadingShare is the reading summary attached to reading-share posts.
type ReadingShare struct {
	SpreadName string   `json:"spreadName" validate:"required,max=100"`
	Cards      []string `json:"cards" validate:"min=1,max=10,dive,required,max=100"`
}

// Post is a community forum post. ViewCount and CommentCount are
// denormalised counters maintained by read-then-write updates.
type Post struct {
	ID           string        `json:"id"`
	Category     PostCategory  `json:"category"`
	Title        string        `json:"title"`
	Content      string        `json:"content"`
	AuthorID     string        `json:"authorId"`
	AuthorName   string        `json:"authorName"`
	Tags         []string      `json:"tags"`
	ReadingShare *ReadingShare `json:"readingShare,omitempty"`
	ViewCount    int           `json:"viewCount"`
	CommentCount int           `json:"commentCount"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// Comment belongs to exactly one post.
type Comment struct {
	ID         string    `json:"id"`
	PostID     string    `json:"postId"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// PostFilter narrows a post listing. Page is 1-based.
type PostFilter struct {
	Category PostCategory
	Page     int
	PageSize int
}

// Offset returns the row offset for the filter's page.
func (f PostFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Page is one page of results plus the total row count.
type Page[T any] struct {
	Items    []T `json:"items"`
	Total    int `json:"total"`
	Page     int `json:"page"`
	PageSize int `json:"pageSize"`
}
