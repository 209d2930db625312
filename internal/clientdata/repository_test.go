package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepo(t *testing.T) (*Repository, *sql.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE quotes (
			symbol     TEXT PRIMARY KEY,
			payload    BLOB NOT NULL,
			fetched_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	return NewRepository(db), db
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo, _ := setupRepo(t)

	in := Quote{Price: 3150.5, Previous: 3100, Currency: "TRY"}
	require.NoError(t, repo.Store("GC=F", in))

	out, err := repo.GetIfFresh("GC=F", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in, *out)
}

func TestGetIfFresh_MissingSymbol(t *testing.T) {
	repo, _ := setupRepo(t)

	out, err := repo.GetIfFresh("NOPE", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestGetIfFresh_ExpiredEntry(t *testing.T) {
	repo, db := setupRepo(t)

	require.NoError(t, repo.Store("GC=F", Quote{Price: 3150.5}))

	// Age the entry past the ttl.
	_, err := db.Exec("UPDATE quotes SET fetched_at = ?", time.Now().Add(-2*time.Hour).Unix())
	require.NoError(t, err)

	out, err := repo.GetIfFresh("GC=F", time.Minute)
	require.NoError(t, err)
	assert.Nil(t, out, "expired entry must not be served as fresh")

	stale, err := repo.GetStale("GC=F")
	require.NoError(t, err)
	require.NotNil(t, stale)
	assert.Equal(t, 3150.5, stale.Price)
}

func TestGetStale_NeverCached(t *testing.T) {
	repo, _ := setupRepo(t)

	out, err := repo.GetStale("NOPE")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestStore_Overwrites(t *testing.T) {
	repo, _ := setupRepo(t)

	require.NoError(t, repo.Store("USDTRY=X", Quote{Price: 34.1}))
	require.NoError(t, repo.Store("USDTRY=X", Quote{Price: 34.5}))

	out, err := repo.GetIfFresh("USDTRY=X", time.Minute)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, 34.5, out.Price)
}

func TestPurge(t *testing.T) {
	repo, db := setupRepo(t)

	require.NoError(t, repo.Store("OLD", Quote{Price: 1}))
	require.NoError(t, repo.Store("NEW", Quote{Price: 2}))

	_, err := db.Exec(
		"UPDATE quotes SET fetched_at = ? WHERE symbol = 'OLD'",
		time.Now().Add(-48*time.Hour).Unix(),
	)
	require.NoError(t, err)

	deleted, err := repo.Purge(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	out, err := repo.GetStale("NEW")
	require.NoError(t, err)
	assert.NotNil(t, out)

	out, err = repo.GetStale("OLD")
	require.NoError(t, err)
	assert.Nil(t, out)
}
