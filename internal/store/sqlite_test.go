package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSQLite(t *testing.T) *SQLitePersister {
	t.Helper()
	p, err := OpenSQLiteMemory()
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })
	return p
}

func TestSQLiteSchemaVersion(t *testing.T) {
	p := testSQLite(t)

	v, err := p.db.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestSQLiteMigrationsIdempotent(t *testing.T) {
	p := testSQLite(t)

	require.NoError(t, p.db.migrate())
	v, err := p.db.schemaVersion()
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestSQLiteLoadEmpty(t *testing.T) {
	entries, err := testSQLite(t).Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLiteRoundTrip(t *testing.T) {
	p := testSQLite(t)
	want := sampleEntries()

	require.NoError(t, p.Save(want))
	got, err := p.Load()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// A second save replaces rather than appends.
	require.NoError(t, p.Save(want[:1]))
	got, err = p.Load()
	require.NoError(t, err)
	assert.Equal(t, want[:1], got)
}

func TestSQLiteConstraints(t *testing.T) {
	p := testSQLite(t)

	_, err := p.db.Exec(`INSERT INTO entries (seq, id, type, timestamp) VALUES (1, 'x', 'note', '2026-03-01T09:30:00Z')`)
	assert.Error(t, err, "unknown type must be rejected")

	_, err = p.db.Exec(`INSERT INTO entries (seq, id, type, timestamp, status) VALUES (2, 'y', 'hoard', '2026-03-01T09:30:00Z', 'gone')`)
	assert.Error(t, err, "unknown status must be rejected")
}

func TestSQLiteLoadCorruptRow(t *testing.T) {
	p := testSQLite(t)
	_, err := p.db.Exec(`INSERT INTO entries (seq, id, type, timestamp, text, tags) VALUES (1, 'e1', 'echo', '2026-03-01T09:30:00Z', 'x', '{not json')`)
	require.NoError(t, err)

	_, err = p.Load()
	var cerr *CorruptStoreError
	assert.ErrorAs(t, err, &cerr)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.db")
	p, err := OpenSQLite(path)
	require.NoError(t, err)

	s, err := Open(p)
	require.NoError(t, err)
	for _, e := range sampleEntries() {
		require.NoError(t, s.Append(e))
	}
	want := s.Snapshot()
	require.NoError(t, p.Close())

	p2, err := OpenSQLite(path)
	require.NoError(t, err)
	defer p2.Close()
	reopened, err := Open(p2)
	require.NoError(t, err)
	assert.Equal(t, want, reopened.Snapshot())
}

func TestSQLiteWALMode(t *testing.T) {
	p := testSQLite(t)

	var mode string
	require.NoError(t, p.db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	// In-memory databases may use "memory" mode instead of WAL
	assert.Contains(t, []string{"wal", "memory"}, mode)
}
