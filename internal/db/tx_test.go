package db

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	_, err = conn.Exec(`CREATE TABLE tracks (id INTEGER PRIMARY KEY, title TEXT)`)
	require.NoError(t, err)
	return conn
}

func countTracks(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM tracks`).Scan(&n))
	return n
}

func TestWithTx_CommitsOnSuccess(t *testing.T) {
	conn := openTestDB(t)

	err := WithTx(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO tracks (title) VALUES (?)`, "one"); err != nil {
			return err
		}
		_, err := tx.Exec(`INSERT INTO tracks (title) VALUES (?)`, "two")
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, countTracks(t, conn))
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	conn := openTestDB(t)
	boom := errors.New("boom")

	err := WithTx(conn, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO tracks (title) VALUES (?)`, "one"); err != nil {
			return err
		}
		return boom
	})

	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, countTracks(t, conn), "partial writes must not survive")
}

func TestNullValues(t *testing.T) {
	assert.Equal(t, int64(42), NullInt64Value(sql.NullInt64{Int64: 42, Valid: true}))
	assert.Equal(t, int64(0), NullInt64Value(sql.NullInt64{Int64: 42, Valid: false}))
	assert.Equal(t, "hello", NullStringValue(sql.NullString{String: "hello", Valid: true}))
	assert.Equal(t, "", NullStringValue(sql.NullString{String: "hello", Valid: false}))
}
