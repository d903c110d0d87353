package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	"github.com/zeebo/blake3"

	"github.com/flemzord/codeshift/internal/translate"

	_ "modernc.org/sqlite" // SQLite driver registration
)

// Key identifies one collaborator call.
type Key [32]byte

// encMode uses core deterministic encoding so that equal requests always
// hash to the same key.
var encMode, _ = cbor.CoreDetEncOptions().EncMode()

// NewKey hashes the namespace (model and system prompt) together with the
// CBOR encoding of req.
func NewKey(namespace string, req translate.Request) (Key, error) {
	body, err := encMode.Marshal(req)
	if err != nil {
		return Key{}, fmt.Errorf("cache.sqlite: encode request: %w", err)
	}
	h := blake3.New()
	_, _ = h.Write([]byte(namespace))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(body)

	var k Key
	copy(k[:], h.Sum(nil))
	return k, nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Entries int64
	Hits    int64
	Bytes   int64
}

// Store is the response table.
type Store struct {
	db    *sql.DB
	codec Codec
}

// Open opens or creates the database at path. The caller closes the
// store when done.
func Open(ctx context.Context, path string, cfg Config) (*Store, error) {
	cfg.defaults()
	codec, err := ParseCodec(cfg.Compression)
	if err != nil {
		return nil, fmt.Errorf("cache.sqlite: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("cache.sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cache.sqlite: open %s: %w", path, err)
	}
	// One connection, so PRAGMAs apply to every statement.
	db.SetMaxOpenConns(1)

	if cfg.walEnabled() {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("cache.sqlite: enable WAL: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, fmt.Sprintf("PRAGMA busy_timeout=%d", cfg.BusyTimeout)); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache.sqlite: set busy_timeout: %w", err)
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, codec: codec}, nil
}

// Get returns the stored response for k. ok is false on a miss.
func (s *Store) Get(ctx context.Context, k Key) (raw string, ok bool, err error) {
	var (
		codec string
		size  int
		data  []byte
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT compression, size, data FROM responses WHERE key = ?", k[:],
	).Scan(&codec, &size, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("cache.sqlite: get: %w", err)
	}

	body, err := decompress(Codec(codec), data, size)
	if err != nil {
		return "", false, fmt.Errorf("cache.sqlite: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "UPDATE responses SET hits = hits + 1 WHERE key = ?", k[:]); err != nil {
		return "", false, fmt.Errorf("cache.sqlite: count hit: %w", err)
	}
	return string(body), true, nil
}

// Put stores raw under k, replacing any previous value.
func (s *Store) Put(ctx context.Context, k Key, model, raw string) error {
	data, codec := compress(s.codec, []byte(raw))
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO responses (key, model, compression, size, data) VALUES (?, ?, ?, ?, ?)`,
		k[:], model, string(codec), len(raw), data,
	)
	if err != nil {
		return fmt.Errorf("cache.sqlite: put: %w", err)
	}
	return nil
}

// Stats reports the number of entries, total hits and stored bytes.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(hits), 0), COALESCE(SUM(LENGTH(data)), 0) FROM responses",
	).Scan(&st.Entries, &st.Hits, &st.Bytes)
	if err != nil {
		return Stats{}, fmt.Errorf("cache.sqlite: stats: %w", err)
	}
	return st, nil
}

// Purge deletes every entry, or only those of model when it is non-empty.
func (s *Store) Purge(ctx context.Context, model string) (int64, error) {
	q, args := "DELETE FROM responses", []any(nil)
	if model != "" {
		q, args = q+" WHERE model = ?", []any{model}
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("cache.sqlite: purge: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
