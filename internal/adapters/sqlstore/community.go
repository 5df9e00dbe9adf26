package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
)

type postRow struct {
	ID           string    `db:"id"`
	Category     string    `db:"category"`
	Title        string    `db:"title"`
	Content      string    `db:"content"`
	AuthorID     string    `db:"author_id"`
	AuthorName   string    `db:"author_name"`
	Tags         string    `db:"tags"`
	ReadingShare string    `db:"reading_share"`
	ViewCount    int       `db:"view_count"`
	CommentCount int       `db:"comment_count"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

const postColumns = `id, category, title, content, author_id, author_name, tags, reading_share,
	view_count, comment_count, created_at, updated_at`

func toPostRow(p domain.Post) (postRow, error) {
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return postRow{}, fmt.Errorf("encode tags: %w", err)
	}
	var share string
	if p.ReadingShare != nil {
		raw, err := json.Marshal(p.ReadingShare)
		if err != nil {
			return postRow{}, fmt.Errorf("encode reading share: %w", err)
		}
		share = string(raw)
	}
	return postRow{
		ID:           p.ID,
		Category:     string(p.Category),
		Title:        p.Title,
		Content:      p.Content,
		AuthorID:     p.AuthorID,
		AuthorName:   p.AuthorName,
		Tags:         string(tagsJSON),
		ReadingShare: share,
		ViewCount:    p.ViewCount,
		CommentCount: p.CommentCount,
		CreatedAt:    p.CreatedAt.UTC(),
		UpdatedAt:    p.UpdatedAt.UTC(),
	}, nil
}

func (r postRow) toDomain() (domain.Post, error) {
	p := domain.Post{
		ID:           r.ID,
		Category:     domain.PostCategory(r.Category),
		Title:        r.Title,
		Content:      r.Content,
		AuthorID:     r.AuthorID,
		AuthorName:   r.AuthorName,
		Tags:         []string{},
		ViewCount:    r.ViewCount,
		CommentCount: r.CommentCount,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if r.Tags != "" {
		if err := json.Unmarshal([]byte(r.Tags), &p.Tags); err != nil {
			return domain.Post{}, fmt.Errorf("decode tags of post %s: %w", r.ID, err)
		}
	}
	if r.ReadingShare != "" {
		var share domain.ReadingShare
		if err := json.Unmarshal([]byte(r.ReadingShare), &share); err != nil {
			return domain.Post{}, fmt.Errorf("decode reading share of post %s: %w", r.ID, err)
		}
		p.ReadingShare = &share
	}
	return p, nil
}

func (s *Store) CreatePost(ctx context.Context, p domain.Post) (domain.Post, error) {
	row, err := toPostRow(p)
	if err != nil {
		return domain.Post{}, err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO posts (`+postColumns+`)
		VALUES (:id, :category, :title, :content, :author_id, :author_name, :tags, :reading_share,
			:view_count, :comment_count, :created_at, :updated_at)
	`, row)
	if err != nil {
		return domain.Post{}, fmt.Errorf("insert post: %w", err)
	}
	return row.toDomain()
}

func (s *Store) GetPost(ctx context.Context, id string) (domain.Post, error) {
	var row postRow
	err := s.db.GetContext(ctx, &row, s.q(`SELECT `+postColumns+` FROM posts WHERE id = ?`), id)
	if err != nil {
		return domain.Post{}, notFound(err)
	}
	return row.toDomain()
}

// ListPosts returns one page ordered newest first with the total row count.
func (s *Store) ListPosts(ctx context.Context, f domain.PostFilter) (domain.Page[domain.Post], error) {
	where, args := "", []any{}
	if f.Category != "" {
		where = ` WHERE category = ?`
		args = append(args, string(f.Category))
	}

	var total int
	if err := s.db.GetContext(ctx, &total, s.q(`SELECT COUNT(*) FROM posts`+where), args...); err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("count posts: %w", err)
	}

	var rows []postRow
	query := `SELECT ` + postColumns + ` FROM posts` + where + ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	if err := s.db.SelectContext(ctx, &rows, s.q(query), append(args, f.PageSize, f.Offset())...); err != nil {
		return domain.Page[domain.Post]{}, fmt.Errorf("list posts: %w", err)
	}

	page := domain.Page[domain.Post]{Items: make([]domain.Post, len(rows)), Total: total, Page: f.Page, PageSize: f.PageSize}
	for i, r := range rows {
		var err error
		if page.Items[i], err = r.toDomain(); err != nil {
			return domain.Page[domain.Post]{}, err
		}
	}
	return page, nil
}

// UpdatePost rewrites the editable columns. Counters and created_at are
// left alone.
func (s *Store) UpdatePost(ctx context.Context, p domain.Post) (domain.Post, error) {
	row, err := toPostRow(p)
	if err != nil {
		return domain.Post{}, err
	}
	res, err := s.db.ExecContext(ctx, s.q(`
		UPDATE posts
		SET category = ?, title = ?, content = ?, tags = ?, reading_share = ?, updated_at = ?
		WHERE id = ?
	`), row.Category, row.Title, row.Content, row.Tags, row.ReadingShare, row.UpdatedAt, row.ID)
	if err := expectOne(res, err); err != nil {
		return domain.Post{}, err
	}
	return s.GetPost(ctx, p.ID)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM posts WHERE id = ?`), id)
	return expectOne(res, err)
}

func (s *Store) SetViewCount(ctx context.Context, id string, n int) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE posts SET view_count = ? WHERE id = ?`), n, id)
	return expectOne(res, err)
}

func (s *Store) SetCommentCount(ctx context.Context, id string, n int) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE posts SET comment_count = ? WHERE id = ?`), n, id)
	return expectOne(res, err)
}

type commentRow struct {
	ID         string    `db:"id"`
	PostID     string    `db:"post_id"`
	AuthorID   string    `db:"author_id"`
	AuthorName string    `db:"author_name"`
	Content    string    `db:"content"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  time.Time `db:"updated_at"`
}

const commentColumns = `id, post_id, author_id, author_name, content, created_at, updated_at`

func (r commentRow) toDomain() domain.Comment {
	return domain.Comment{
		ID:         r.ID,
		PostID:     r.PostID,
		AuthorID:   r.AuthorID,
		AuthorName: r.AuthorName,
		Content:    r.Content,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
}

func (s *Store) CreateComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	row := commentRow{
		ID:         c.ID,
		PostID:     c.PostID,
		AuthorID:   c.AuthorID,
		AuthorName: c.AuthorName,
		Content:    c.Content,
		CreatedAt:  c.CreatedAt.UTC(),
		UpdatedAt:  c.UpdatedAt.UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO comments (`+commentColumns+`)
		VALUES (:id, :post_id, :author_id, :author_name, :content, :created_at, :updated_at)
	`, row)
	if err != nil {
		return domain.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetComment(ctx context.Context, id string) (domain.Comment, error) {
	var row commentRow
	if err := s.db.GetContext(ctx, &row, s.q(`SELECT `+commentColumns+` FROM comments WHERE id = ?`), id); err != nil {
		return domain.Comment{}, notFound(err)
	}
	return row.toDomain(), nil
}

// ListComments returns a post's comments oldest first.
func (s *Store) ListComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	var rows []commentRow
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+commentColumns+` FROM comments WHERE post_id = ? ORDER BY created_at ASC, id ASC
	`), postID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	out := make([]domain.Comment, len(rows))
	for i, r := range rows {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (s *Store) UpdateComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE comments SET content = ?, updated_at = ? WHERE id = ?`),
		c.Content, c.UpdatedAt.UTC(), c.ID)
	if err := expectOne(res, err); err != nil {
		return domain.Comment{}, err
	}
	return s.GetComment(ctx, c.ID)
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM comments WHERE id = ?`), id)
	return expectOne(res, err)
}

// DeleteCommentsByPost removes every comment of a post and reports how many
// were deleted.
func (s *Store) DeleteCommentsByPost(ctx context.Context, postID string) (int, error) {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM comments WHERE post_id = ?`), postID)
	if err != nil {
		return 0, fmt.Errorf("delete comments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
