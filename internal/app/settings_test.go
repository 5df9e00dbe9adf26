package app_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopetreehub/innerspell/internal/app"
	"github.com/hopetreehub/innerspell/internal/domain"
)

func newSettings(t *testing.T, db *memDB) *app.SettingsService {
	t.Helper()
	return app.NewSettingsService(db, app.NewProfileService(db, discardLogger()), loadDefaults(t), discardLogger())
}

func TestSettings_DefaultWhenAbsent(t *testing.T) {
	db := newMemDB()
	db.addProfile("alice", domain.RoleAdmin)
	svc := newSettings(t, db)

	got, err := svc.Get(context.Background(), alice, domain.SettingsTarotPrompt)
	require.NoError(t, err)
	assert.Contains(t, got.PromptTemplate, "{{.CardInterpretations}}")

	got, err = svc.Get(context.Background(), alice, domain.SettingsDreamPrompt)
	require.NoError(t, err)
	assert.Contains(t, got.PromptTemplate, "Interpret the dream")
}

func TestSettings_AdminOnly(t *testing.T) {
	db := newMemDB()
	db.addProfile("bob", domain.RoleUser)
	svc := newSettings(t, db)

	_, err := svc.Get(context.Background(), bob, domain.SettingsTarotPrompt)
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.Save(context.Background(), bob, domain.SettingsTarotPrompt, app.SaveSettingsInput{PromptTemplate: "x"})
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, db.settings)
}

func TestSettings_Save(t *testing.T) {
	db := newMemDB()
	db.addProfile("alice", domain.RoleAdmin)
	svc := newSettings(t, db)
	ctx := context.Background()

	saved, err := svc.Save(ctx, alice, domain.SettingsTarotPrompt, app.SaveSettingsInput{
		PromptTemplate: "Read {{.CardSpread}} for {{.Question}}",
		SafetySettings: []domain.SafetySetting{{Category: "HARM_CATEGORY_HATE_SPEECH", Threshold: "BLOCK_NONE"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", saved.UpdatedBy)
	assert.False(t, saved.UpdatedAt.IsZero())

	eff := svc.Effective(ctx, domain.SettingsTarotPrompt)
	assert.Equal(t, "Read {{.CardSpread}} for {{.Question}}", eff.PromptTemplate)
	require.Len(t, eff.SafetySettings, 1)
}

func TestSettings_SaveRejects(t *testing.T) {
	db := newMemDB()
	db.addProfile("alice", domain.RoleAdmin)
	svc := newSettings(t, db)
	ctx := context.Background()

	tests := []struct {
		name  string
		id    string
		in    app.SaveSettingsInput
		field string
	}{
		{"empty template", domain.SettingsTarotPrompt, app.SaveSettingsInput{}, "promptTemplate"},
		{"unparseable template", domain.SettingsTarotPrompt, app.SaveSettingsInput{PromptTemplate: "{{.Question"}, "promptTemplate"},
		{"unknown category", domain.SettingsTarotPrompt, app.SaveSettingsInput{
			PromptTemplate: "ok",
			SafetySettings: []domain.SafetySetting{{Category: "HARM_CATEGORY_WEATHER", Threshold: "BLOCK_NONE"}},
		}, "safetySettings[0].category"},
		{"safety on dream prompt", domain.SettingsDreamPrompt, app.SaveSettingsInput{
			PromptTemplate: "ok",
			SafetySettings: []domain.SafetySetting{{Category: "HARM_CATEGORY_HARASSMENT", Threshold: "OFF"}},
		}, "safetySettings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Save(ctx, alice, tt.id, tt.in)
			var verr *domain.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Fields[0].Field)
		})
	}
	assert.Empty(t, db.settings)
}

func TestSettings_EmptyStoredTemplateUsesDefault(t *testing.T) {
	db := newMemDB()
	db.settings[domain.SettingsDreamPrompt] = domain.PromptSettings{ID: domain.SettingsDreamPrompt, PromptTemplate: "  "}
	svc := newSettings(t, db)

	eff := svc.Effective(context.Background(), domain.SettingsDreamPrompt)
	assert.Contains(t, eff.PromptTemplate, "Interpret the dream")
}
