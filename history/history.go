// Package history keeps a log of generated waltzes so they can be replayed.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

var ErrNotFound = errors.New("history: waltz not found")

// Entry is one generated waltz. The rolls, together with the corpus and
// the selection table, fully determine the song.
type Entry struct {
	ID      uuid.UUID `msgpack:"id"`
	Created time.Time `msgpack:"created"`
	Tempo   float64   `msgpack:"tempo"`
	Rolls   []int     `msgpack:"rolls"`
}

// Store is a history log backed by BadgerDB. Entries are keyed by time
// ordered ids so iteration follows creation order.
type Store struct {
	db *badger.DB
}

// Options configures the store.
type Options struct {
	// Dir is the directory for the database files. Required unless InMemory is set.
	Dir string

	// InMemory keeps the database in memory only.
	InMemory bool
}

var keyPrefix = []byte("waltz/")

func Open(opts Options) (*Store, error) {
	if !opts.InMemory && opts.Dir == "" {
		return nil, errors.New("history: Options.Dir is required for on-disk mode")
	}
	dbOpts := badger.DefaultOptions(opts.Dir).WithLogger(logger{})
	if opts.InMemory {
		dbOpts = dbOpts.WithInMemory(true)
	}
	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("history: open: %w", err)
	}
	return &Store{db: db}, nil
}

// Add records a new waltz and returns its entry.
func (s *Store) Add(ctx context.Context, tempo float64, rolls []int) (Entry, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return Entry{}, err
	}
	e := Entry{
		ID:      id,
		Created: time.Now().UTC(),
		Tempo:   tempo,
		Rolls:   append([]int(nil), rolls...),
	}
	return e, s.Put(ctx, e)
}

func (s *Store) Put(_ context.Context, e Entry) error {
	val, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("history: encode: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key(e.ID), val)
	})
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (Entry, error) {
	var e Entry
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return msgpack.Unmarshal(val, &e)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, err
}

// List returns up to limit entries, newest first. A limit <= 0 returns all.
func (s *Store) List(_ context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = keyPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), keyPrefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(keyPrefix); it.Next() {
			if limit > 0 && len(entries) == limit {
				break
			}
			var e Entry
			err := it.Item().Value(func(val []byte) error {
				return msgpack.Unmarshal(val, &e)
			})
			if err != nil {
				return fmt.Errorf("history: decode %s: %w", it.Item().Key(), err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (s *Store) Close() error {
	return s.db.Close()
}

func key(id uuid.UUID) []byte {
	return append(append([]byte(nil), keyPrefix...), id[:]...)
}

// logger routes badger messages to slog, dropping debug and info output.
type logger struct{}

func (logger) Errorf(f string, v ...any)   { slog.Error(fmt.Sprintf("badger: "+f, v...)) }
func (logger) Warningf(f string, v ...any) { slog.Warn(fmt.Sprintf("badger: "+f, v...)) }
func (logger) Infof(string, ...any)        {}
func (logger) Debugf(string, ...any)       {}
