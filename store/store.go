// Package store persists the portfolio book, either as a JSON document or in
// a SQLite database.
package store

import (
	"context"
	"fmt"

	"github.com/etnz/rebalance"
)

// Store loads and saves a whole book.
type Store interface {
	Load(ctx context.Context) (*rebalance.Book, error)
	Save(ctx context.Context, b *rebalance.Book) error
}

// Kinds of store accepted by Open.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
)

// Open returns the store of kind at path.
func Open(kind, path string) (Store, error) {
	switch kind {
	case KindFile, "":
		return File(path), nil
	case KindSQLite:
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown store kind %q, want %q or %q", kind, KindFile, KindSQLite)
	}
}

// Update loads the book from s, applies fn and saves the result. Nothing is
// saved when fn fails.
func Update(ctx context.Context, s Store, fn func(*rebalance.Book) error) (*rebalance.Book, error) {
	b, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(b); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

// File stores the book as a JSON document at the given path.
type File string

func (f File) Load(ctx context.Context) (*rebalance.Book, error) {
	return rebalance.LoadBook(string(f))
}

func (f File) Save(ctx context.Context, b *rebalance.Book) error {
	return rebalance.SaveBook(string(f), b)
}
