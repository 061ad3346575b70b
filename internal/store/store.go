// Package store keeps generated presentations in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/zeebo/blake3"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("deck not found")

// Record describes a stored deck without its data.
type Record struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SlideCount int       `json:"slide_count"`
	Size       int64     `json:"size"`
	Checksum   string    `json:"checksum"`
	CreatedAt  time.Time `json:"created_at"`
}

type Store struct {
	db  *sql.DB
	log logrus.FieldLogger
}

// Open opens or creates the database at path. ":memory:" gives a private
// in-memory database.
func Open(path string, log logrus.FieldLogger) (*Store, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers and keeps :memory: databases
	// alive across queries
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &Store{db: db, log: log}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	log.WithField("path", path).Debug("Deck store opened")
	return s, nil
}

func (s *Store) createTables() error {
	createDecks := `
	CREATE TABLE IF NOT EXISTS decks (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		slide_count INTEGER NOT NULL,
		size INTEGER NOT NULL,
		checksum TEXT NOT NULL,
		data BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);`
	if _, err := s.db.Exec(createDecks); err != nil {
		return fmt.Errorf("failed to create decks table: %w", err)
	}
	createIndex := `CREATE INDEX IF NOT EXISTS idx_decks_created_at ON decks(created_at);`
	if _, err := s.db.Exec(createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Checksum returns the hex encoded BLAKE3 digest of data.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Put stores data under a new ID.
func (s *Store) Put(ctx context.Context, name string, slideCount int, data []byte) (*Record, error) {
	rec := &Record{
		ID:         uuid.New().String(),
		Name:       name,
		SlideCount: slideCount,
		Size:       int64(len(data)),
		Checksum:   Checksum(data),
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO decks (id, name, slide_count, size, checksum, data, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Name, rec.SlideCount, rec.Size, rec.Checksum, data, rec.CreatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("insert deck: %w", err)
	}
	s.log.WithFields(logrus.Fields{"id": rec.ID, "name": name, "size": rec.Size}).Debug("Deck stored")
	return rec, nil
}

// Get returns the record and data of the deck with the given ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, []byte, error) {
	var (
		rec     Record
		data    []byte
		created int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, slide_count, size, checksum, data, created_at FROM decks WHERE id = ?`, id).
		Scan(&rec.ID, &rec.Name, &rec.SlideCount, &rec.Size, &rec.Checksum, &data, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("query deck %s: %w", id, err)
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	return &rec, data, nil
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) List(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slide_count, size, checksum, created_at FROM decks ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer rows.Close()

	records := []*Record{}
	for rows.Next() {
		var (
			rec     Record
			created int64
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &rec.SlideCount, &rec.Size, &rec.Checksum, &created); err != nil {
			return nil, err
		}
		rec.CreatedAt = time.Unix(0, created).UTC()
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
