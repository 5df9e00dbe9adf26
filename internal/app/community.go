package app

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/hopetreehub/innerspell/internal/domain"
	"github.com/hopetreehub/innerspell/internal/ports"
)

// Author fields for posts created through the content API.
const (
	contentAuthorID   = "content-api"
	contentAuthorName = "InnerSpell"
)

// PostInput is the create/update form for a community post. ReadingShare is
// required for reading-share posts.
type PostInput struct {
	Category     domain.PostCategory  `json:"category" validate:"required,oneof=free-discussion reading-share q-and-a study-group"`
	Title        string               `json:"title" validate:"required,min=2,max=100"`
	Content      string               `json:"content" validate:"required,min=10,max=10000"`
	Tags         []string             `json:"tags" validate:"max=5,dive,required,max=30"`
	ReadingShare *domain.ReadingShare `json:"readingShare" validate:"required_if=Category reading-share"`
}

// ContentPostInput is a post submitted by the content API.
type ContentPostInput struct {
	PostInput
	AuthorName string `json:"authorName"`
}

const maxAuthorName = 50

// CommentInput is the create/update form for a comment.
type CommentInput struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// CommunityService implements the forum actions. Counter maintenance is a
// read-then-write after the primary operation and may lose concurrent
// updates.
type CommunityService struct {
	posts    ports.PostStore
	comments ports.CommentStore
	profiles *ProfileService
	logger   *slog.Logger
}

func NewCommunityService(posts ports.PostStore, comments ports.CommentStore, profiles *ProfileService, logger *slog.Logger) *CommunityService {
	return &CommunityService{posts: posts, comments: comments, profiles: profiles, logger: logger}
}

func (s *CommunityService) CreatePost(ctx context.Context, viewer domain.Viewer, in PostInput) (domain.Post, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.Post{}, err
	}
	if err := validateStruct(in); err != nil {
		return domain.Post{}, err
	}
	author, err := s.profiles.Get(ctx, viewer)
	if err != nil {
		return domain.Post{}, err
	}
	return s.create(ctx, in, viewer.UserID, author.DisplayName)
}

// ImportPost creates a post on behalf of the content API.
func (s *CommunityService) ImportPost(ctx context.Context, in ContentPostInput) (domain.Post, error) {
	if err := validateStruct(in.PostInput); err != nil {
		return domain.Post{}, err
	}
	name := strings.TrimSpace(in.AuthorName)
	if utf8.RuneCountInString(name) > maxAuthorName {
		return domain.Post{}, domain.NewValidationError("authorName", "must be at most 50 characters")
	}
	if name == "" {
		name = contentAuthorName
	}
	return s.create(ctx, in.PostInput, contentAuthorID, name)
}

func (s *CommunityService) create(ctx context.Context, in PostInput, authorID, authorName string) (domain.Post, error) {
	now := time.Now().UTC()
	p, err := s.posts.CreatePost(ctx, domain.Post{
		ID:           uuid.NewString(),
		Category:     in.Category,
		Title:        strings.TrimSpace(in.Title),
		Content:      in.Content,
		AuthorID:     authorID,
		AuthorName:   authorName,
		Tags:         cleanTags(in.Tags),
		ReadingShare: shareFor(in),
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return domain.Post{}, err
	}
	s.logger.InfoContext(ctx, "post created", "post_id", p.ID, "category", p.Category, "author_id", authorID)
	return p, nil
}

// GetPost returns a post and bumps its view counter.
func (s *CommunityService) GetPost(ctx context.Context, id string) (domain.Post, error) {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	p.ViewCount++
	if err := s.posts.SetViewCount(ctx, id, p.ViewCount); err != nil {
		s.logger.WarnContext(ctx, "update view count failed", "post_id", id, "error", err)
		p.ViewCount--
	}
	return p, nil
}

// ListPosts returns one page, newest first.
func (s *CommunityService) ListPosts(ctx context.Context, f domain.PostFilter) (domain.Page[domain.Post], error) {
	if f.Category != "" && !f.Category.Valid() {
		return domain.Page[domain.Post]{}, domain.NewValidationError("category", "is invalid")
	}
	f.Page, f.PageSize = normalizePage(f.Page, f.PageSize)
	return s.posts.ListPosts(ctx, f)
}

// UpdatePost rewrites the author's own post. Counters are preserved.
func (s *CommunityService) UpdatePost(ctx context.Context, viewer domain.Viewer, id string, in PostInput) (domain.Post, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.Post{}, err
	}
	if err := validateStruct(in); err != nil {
		return domain.Post{}, err
	}
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return domain.Post{}, err
	}
	if err := requireOwner(viewer, p.AuthorID); err != nil {
		return domain.Post{}, err
	}
	p.Category = in.Category
	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	p.Tags = cleanTags(in.Tags)
	p.ReadingShare = shareFor(in)
	p.UpdatedAt = time.Now().UTC()
	return s.posts.UpdatePost(ctx, p)
}

// DeletePost removes the author's post after deleting its comments.
func (s *CommunityService) DeletePost(ctx context.Context, viewer domain.Viewer, id string) error {
	p, err := s.posts.GetPost(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(viewer, p.AuthorID); err != nil {
		return err
	}
	n, err := s.comments.DeleteCommentsByPost(ctx, id)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "post deleted", "post_id", id, "comments_deleted", n)
	return nil
}

// ListComments returns a post's comments, oldest first.
func (s *CommunityService) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return nil, err
	}
	return s.comments.ListComments(ctx, postID)
}

func (s *CommunityService) AddComment(ctx context.Context, viewer domain.Viewer, postID string, in CommentInput) (domain.Comment, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.Comment{}, err
	}
	if err := validateStruct(in); err != nil {
		return domain.Comment{}, err
	}
	if _, err := s.posts.GetPost(ctx, postID); err != nil {
		return domain.Comment{}, err
	}
	author, err := s.profiles.Get(ctx, viewer)
	if err != nil {
		return domain.Comment{}, err
	}

	now := time.Now().UTC()
	c, err := s.comments.CreateComment(ctx, domain.Comment{
		ID:         uuid.NewString(),
		PostID:     postID,
		AuthorID:   viewer.UserID,
		AuthorName: author.DisplayName,
		Content:    strings.TrimSpace(in.Content),
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return domain.Comment{}, err
	}
	s.adjustCommentCount(ctx, postID, 1)
	return c, nil
}

func (s *CommunityService) UpdateComment(ctx context.Context, viewer domain.Viewer, id string, in CommentInput) (domain.Comment, error) {
	if err := requireViewer(viewer); err != nil {
		return domain.Comment{}, err
	}
	if err := validateStruct(in); err != nil {
		return domain.Comment{}, err
	}
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return domain.Comment{}, err
	}
	if err := requireOwner(viewer, c.AuthorID); err != nil {
		return domain.Comment{}, err
	}
	c.Content = strings.TrimSpace(in.Content)
	c.UpdatedAt = time.Now().UTC()
	return s.comments.UpdateComment(ctx, c)
}

func (s *CommunityService) DeleteComment(ctx context.Context, viewer domain.Viewer, id string) error {
	c, err := s.comments.GetComment(ctx, id)
	if err != nil {
		return err
	}
	if err := requireOwner(viewer, c.AuthorID); err != nil {
		return err
	}
	if err := s.comments.DeleteComment(ctx, id); err != nil {
		return err
	}
	s.adjustCommentCount(ctx, c.PostID, -1)
	return nil
}

// adjustCommentCount applies delta to the post's counter, floored at zero.
// Failures are logged; the comment operation itself already succeeded.
func (s *CommunityService) adjustCommentCount(ctx context.Context, postID string, delta int) {
	p, err := s.posts.GetPost(ctx, postID)
	if err != nil {
		s.logger.WarnContext(ctx, "read comment count failed", "post_id", postID, "error", err)
		return
	}
	n := max(p.CommentCount+delta, 0)
	if err := s.posts.SetCommentCount(ctx, postID, n); err != nil {
		s.logger.WarnContext(ctx, "update comment count failed", "post_id", postID, "error", err)
	}
}

func shareFor(in PostInput) *domain.ReadingShare {
	if in.Category != domain.CategoryReadingShare {
		return nil
	}
	return in.ReadingShare
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
