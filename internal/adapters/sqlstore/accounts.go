package sqlstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hopetreehub/innerspell/internal/domain"
)

type readingRow struct {
	ID             string    `db:"id"`
	UserID         string    `db:"user_id"`
	Question       string    `db:"question"`
	SpreadName     string    `db:"spread_name"`
	SpreadNumCards int       `db:"spread_num_cards"`
	Cards          string    `db:"cards"`
	Interpretation string    `db:"interpretation"`
	CreatedAt      time.Time `db:"created_at"`
}

const readingColumns = `id, user_id, question, spread_name, spread_num_cards, cards, interpretation, created_at`

func (r readingRow) toDomain() (domain.SavedReading, error) {
	out := domain.SavedReading{
		ID:             r.ID,
		UserID:         r.UserID,
		Question:       r.Question,
		SpreadName:     r.SpreadName,
		SpreadNumCards: r.SpreadNumCards,
		Cards:          []domain.SavedCard{},
		Interpretation: r.Interpretation,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(r.Cards), &out.Cards); err != nil {
		return domain.SavedReading{}, fmt.Errorf("decode cards of reading %s: %w", r.ID, err)
	}
	return out, nil
}

func (s *Store) CreateReading(ctx context.Context, r domain.SavedReading) (domain.SavedReading, error) {
	cards, err := json.Marshal(r.Cards)
	if err != nil {
		return domain.SavedReading{}, fmt.Errorf("encode cards: %w", err)
	}
	row := readingRow{
		ID:             r.ID,
		UserID:         r.UserID,
		Question:       r.Question,
		SpreadName:     r.SpreadName,
		SpreadNumCards: r.SpreadNumCards,
		Cards:          string(cards),
		Interpretation: r.Interpretation,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO saved_readings (`+readingColumns+`)
		VALUES (:id, :user_id, :question, :spread_name, :spread_num_cards, :cards, :interpretation, :created_at)
	`, row)
	if err != nil {
		return domain.SavedReading{}, fmt.Errorf("insert reading: %w", err)
	}
	return row.toDomain()
}

func (s *Store) GetReading(ctx context.Context, id string) (domain.SavedReading, error) {
	var row readingRow
	if err := s.db.GetContext(ctx, &row, s.q(`SELECT `+readingColumns+` FROM saved_readings WHERE id = ?`), id); err != nil {
		return domain.SavedReading{}, notFound(err)
	}
	return row.toDomain()
}

// ListReadings pages through a user's history, newest first.
func (s *Store) ListReadings(ctx context.Context, userID string, page, pageSize int) (domain.Page[domain.SavedReading], error) {
	var total int
	if err := s.db.GetContext(ctx, &total, s.q(`SELECT COUNT(*) FROM saved_readings WHERE user_id = ?`), userID); err != nil {
		return domain.Page[domain.SavedReading]{}, fmt.Errorf("count readings: %w", err)
	}
	var rows []readingRow
	offset := domain.PostFilter{Page: page, PageSize: pageSize}.Offset()
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+readingColumns+` FROM saved_readings
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`), userID, pageSize, offset)
	if err != nil {
		return domain.Page[domain.SavedReading]{}, fmt.Errorf("list readings: %w", err)
	}
	out := domain.Page[domain.SavedReading]{Items: make([]domain.SavedReading, len(rows)), Total: total, Page: page, PageSize: pageSize}
	for i, r := range rows {
		if out.Items[i], err = r.toDomain(); err != nil {
			return domain.Page[domain.SavedReading]{}, err
		}
	}
	return out, nil
}

func (s *Store) DeleteReading(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM saved_readings WHERE id = ?`), id)
	return expectOne(res, err)
}

type profileRow struct {
	ID          string    `db:"id"`
	Email       string    `db:"email"`
	DisplayName string    `db:"display_name"`
	Role        string    `db:"role"`
	BirthDate   string    `db:"birth_date"`
	BirthTime   string    `db:"birth_time"`
	BirthPlace  string    `db:"birth_place"`
	Gender      string    `db:"gender"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

const profileColumns = `id, email, display_name, role, birth_date, birth_time, birth_place, gender, created_at, updated_at`

func (r profileRow) toDomain() domain.Profile {
	return domain.Profile{
		ID:          r.ID,
		Email:       r.Email,
		DisplayName: r.DisplayName,
		Role:        domain.Role(r.Role),
		BirthDate:   r.BirthDate,
		BirthTime:   r.BirthTime,
		BirthPlace:  r.BirthPlace,
		Gender:      r.Gender,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

func (s *Store) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	var row profileRow
	if err := s.db.GetContext(ctx, &row, s.q(`SELECT `+profileColumns+` FROM profiles WHERE id = ?`), id); err != nil {
		return domain.Profile{}, notFound(err)
	}
	return row.toDomain(), nil
}

// UpsertProfile inserts or rewrites a profile. An existing role and
// created_at are kept.
func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) (domain.Profile, error) {
	role := p.Role
	if role == "" {
		role = domain.RoleUser
	}
	row := profileRow{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        string(role),
		BirthDate:   p.BirthDate,
		BirthTime:   p.BirthTime,
		BirthPlace:  p.BirthPlace,
		Gender:      p.Gender,
		CreatedAt:   p.CreatedAt.UTC(),
		UpdatedAt:   p.UpdatedAt.UTC(),
	}
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO profiles (`+profileColumns+`)
		VALUES (:id, :email, :display_name, :role, :birth_date, :birth_time, :birth_place, :gender, :created_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET
			email = excluded.email,
			display_name = excluded.display_name,
			birth_date = excluded.birth_date,
			birth_time = excluded.birth_time,
			birth_place = excluded.birth_place,
			gender = excluded.gender,
			updated_at = excluded.updated_at
	`, row)
	if err != nil {
		return domain.Profile{}, fmt.Errorf("upsert profile: %w", err)
	}
	return s.GetProfile(ctx, p.ID)
}

func (s *Store) SetRole(ctx context.Context, id string, role domain.Role) error {
	res, err := s.db.ExecContext(ctx, s.q(`UPDATE profiles SET role = ?, updated_at = ? WHERE id = ?`),
		string(role), time.Now().UTC(), id)
	return expectOne(res, err)
}

func (s *Store) ListProfiles(ctx context.Context, page, pageSize int) (domain.Page[domain.Profile], error) {
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM profiles`); err != nil {
		return domain.Page[domain.Profile]{}, fmt.Errorf("count profiles: %w", err)
	}
	var rows []profileRow
	offset := domain.PostFilter{Page: page, PageSize: pageSize}.Offset()
	err := s.db.SelectContext(ctx, &rows, s.q(`
		SELECT `+profileColumns+` FROM profiles ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?
	`), pageSize, offset)
	if err != nil {
		return domain.Page[domain.Profile]{}, fmt.Errorf("list profiles: %w", err)
	}
	out := domain.Page[domain.Profile]{Items: make([]domain.Profile, len(rows)), Total: total, Page: page, PageSize: pageSize}
	for i, r := range rows {
		out.Items[i] = r.toDomain()
	}
	return out, nil
}

type subscriptionRow struct {
	Email     string    `db:"email"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *Store) UpsertSubscription(ctx context.Context, sub domain.Subscription) (domain.Subscription, error) {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO newsletter_subscriptions (email, status, created_at, updated_at)
		VALUES (:email, :status, :created_at, :updated_at)
		ON CONFLICT (email) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at
	`, subscriptionRow{
		Email:     sub.Email,
		Status:    string(sub.Status),
		CreatedAt: sub.CreatedAt.UTC(),
		UpdatedAt: sub.UpdatedAt.UTC(),
	})
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("upsert subscription: %w", err)
	}
	return s.GetSubscription(ctx, sub.Email)
}

func (s *Store) GetSubscription(ctx context.Context, email string) (domain.Subscription, error) {
	var row subscriptionRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT email, status, created_at, updated_at FROM newsletter_subscriptions WHERE email = ?
	`), email)
	if err != nil {
		return domain.Subscription{}, notFound(err)
	}
	return domain.Subscription{
		Email:     row.Email,
		Status:    domain.NewsletterStatus(row.Status),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}, nil
}

type settingsRow struct {
	ID             string    `db:"id"`
	PromptTemplate string    `db:"prompt_template"`
	SafetySettings string    `db:"safety_settings"`
	UpdatedAt      time.Time `db:"updated_at"`
	UpdatedBy      string    `db:"updated_by"`
}

func (s *Store) GetSettings(ctx context.Context, id string) (domain.PromptSettings, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row, s.q(`
		SELECT id, prompt_template, safety_settings, updated_at, updated_by FROM settings WHERE id = ?
	`), id)
	if err != nil {
		return domain.PromptSettings{}, notFound(err)
	}
	out := domain.PromptSettings{
		ID:             row.ID,
		PromptTemplate: row.PromptTemplate,
		UpdatedAt:      row.UpdatedAt.UTC(),
		UpdatedBy:      row.UpdatedBy,
	}
	if row.SafetySettings != "" {
		if err := json.Unmarshal([]byte(row.SafetySettings), &out.SafetySettings); err != nil {
			return domain.PromptSettings{}, fmt.Errorf("decode safety settings: %w", err)
		}
	}
	return out, nil
}

func (s *Store) SaveSettings(ctx context.Context, ps domain.PromptSettings) (domain.PromptSettings, error) {
	safety := ps.SafetySettings
	if safety == nil {
		safety = []domain.SafetySetting{}
	}
	raw, err := json.Marshal(safety)
	if err != nil {
		return domain.PromptSettings{}, fmt.Errorf("encode safety settings: %w", err)
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO settings (id, prompt_template, safety_settings, updated_at, updated_by)
		VALUES (:id, :prompt_template, :safety_settings, :updated_at, :updated_by)
		ON CONFLICT (id) DO UPDATE SET
			prompt_template = excluded.prompt_template,
			safety_settings = excluded.safety_settings,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by
	`, settingsRow{
		ID:             ps.ID,
		PromptTemplate: ps.PromptTemplate,
		SafetySettings: string(raw),
		UpdatedAt:      ps.UpdatedAt.UTC(),
		UpdatedBy:      ps.UpdatedBy,
	})
	if err != nil {
		return domain.PromptSettings{}, fmt.Errorf("save settings: %w", err)
	}
	return s.GetSettings(ctx, ps.ID)
}
