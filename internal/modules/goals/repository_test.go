package goals

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE goals (
			id     INTEGER PRIMARY KEY AUTOINCREMENT,
			name   TEXT NOT NULL,
			amount REAL NOT NULL,
			owner  TEXT NOT NULL
		)
	`)
	require.NoError(t, err)

	return NewRepository(db, zerolog.Nop())
}

func TestGet_DefaultsWhenUnset(t *testing.T) {
	repo := setupRepo(t)

	goal, err := repo.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, DefaultName, goal.Name)
	assert.Equal(t, float64(DefaultAmount), goal.Amount)
}

func TestSet_ReplacesExistingGoal(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Set("alice", Goal{Name: "Ev", Amount: 2_500_000}))
	require.NoError(t, repo.Set("alice", Goal{Name: "Araba", Amount: 800_000}))

	goal, err := repo.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, Goal{Name: "Araba", Amount: 800_000}, goal)

	// Replacement, not accumulation: exactly one row survives.
	var count int
	require.NoError(t, repo.db.QueryRow("SELECT COUNT(*) FROM goals WHERE owner = 'alice'").Scan(&count))
	assert.Equal(t, 1, count)
}

func TestSet_RejectsNonPositiveAmount(t *testing.T) {
	repo := setupRepo(t)

	assert.Error(t, repo.Set("alice", Goal{Name: "Ev", Amount: 0}))
	assert.Error(t, repo.Set("alice", Goal{Name: "Ev", Amount: -5}))
}

func TestSet_OwnerIsolation(t *testing.T) {
	repo := setupRepo(t)

	require.NoError(t, repo.Set("alice", Goal{Name: "Ev", Amount: 2_000_000}))
	require.NoError(t, repo.Set("bob", Goal{Name: "Tekne", Amount: 5_000_000}))

	goal, err := repo.Get("alice")
	require.NoError(t, err)
	assert.Equal(t, "Ev", goal.Name)
}

func TestProgress(t *testing.T) {
	testCases := []struct {
		name  string
		total float64
		goal  float64
		want  float64
	}{
		{"halfway", 500_000, 1_000_000, 50},
		{"exactly reached", 1_000_000, 1_000_000, 100},
		{"overshoot clamps to 100", 1_200_000, 1_000_000, 100},
		{"empty portfolio", 0, 1_000_000, 0},
		{"zero goal guards division", 500_000, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, Progress(tc.total, tc.goal), 1e-9)
		})
	}
}
