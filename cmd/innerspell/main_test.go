package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hopetreehub/innerspell/internal/auth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCardsCommand(t *testing.T) {
	out, err := run(t, "cards", "--suit", "")
	require.NoError(t, err)
	assert.Contains(t, out, "78 cards")

	out, err = run(t, "cards", "--suit", "cups")
	require.NoError(t, err)
	assert.Contains(t, out, "14 cards")

	out, err = run(t, "cards", "major_00")
	require.NoError(t, err)
	assert.Contains(t, out, "The Fool")
	assert.Contains(t, out, "Reversed")

	_, err = run(t, "cards", "nope")
	require.Error(t, err)
}

func TestDrawCommand_SeededIsReproducible(t *testing.T) {
	first, err := run(t, "draw", "--spread", "3-card", "--seed", "7")
	require.NoError(t, err)
	second, err := run(t, "draw", "--spread", "3-card", "--seed", "7")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	for _, pos := range []string{"Past", "Present", "Future"} {
		assert.Contains(t, first, pos)
	}

	_, err = run(t, "draw", "--spread", "five-card", "--seed", "7")
	require.Error(t, err)
}

func TestMigrateCommand(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", filepath.Join(t.TempDir(), "cli.db"))

	out, err := run(t, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: none")

	out, err = run(t, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: 1 (dirty: false)")

	out, err = run(t, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "schema version: none")
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "cli-secret")

	out, err := run(t, "token", "u42", "--email", "u42@example.com", "--ttl", "1h")
	require.NoError(t, err)

	v, err := auth.Verify([]byte("cli-secret"), strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u42", v.UserID)
	assert.Equal(t, "u42@example.com", v.Email)
}

func TestPickSlots_Distinct(t *testing.T) {
	slots := pickSlots(stdRNG{}, 15, 10)
	seen := map[int]bool{}
	for _, s := range slots {
		assert.False(t, seen[s])
		assert.True(t, s >= 0 && s < 15)
		seen[s] = true
	}
	assert.Len(t, slots, 10)
}
