package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
)

const (
	bookPrefix            = "book:"
	bookByCreatedAtPrefix = "idx:books:created_at:"
	bookByOwnerPrefix     = "idx:books:owner:"
)

// CreateBook creates a new book along with its ordering and owner indexes.
func (s *Store) CreateBook(ctx context.Context, book *domain.Book) error {
	key := []byte(bookPrefix + book.ID)

	exists, err := s.exists(key)
	if err != nil {
		return fmt.Errorf("check book exists: %w", err)
	}
	if exists {
		return ErrBookExists
	}

	// Use transaction to create book and indices atomically
	err = s.db.Update(func(txn *badger.Txn) error {
		// Save book
		data, err := json.Marshal(book)
		if err != nil {
			return fmt.Errorf("marshal book: %w", err)
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}

		// Create created_at index for newest-first listing
		createdAtKey := bookCreatedAtKey(book.CreatedAt, book.ID)
		if err := txn.Set(createdAtKey, []byte(book.ID)); err != nil {
			return err
		}

		// Create owner index for per-user listing
		ownerKey := bookOwnerKey(book.OwnerID, book.CreatedAt, book.ID)
		if err := txn.Set(ownerKey, []byte(book.ID)); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	if s.logger != nil {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "book created",
			slog.String("id", book.ID),
			slog.String("title", book.Title),
			slog.String("owner_id", book.OwnerID),
		)
	}
	return nil
}

// GetBook retrieves a book by ID.
func (s *Store) GetBook(_ context.Context, id string) (*domain.Book, error) {
	key := []byte(bookPrefix + id)

	var book domain.Book
	if err := s.get(key, &book); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrBookNotFound
		}
		return nil, fmt.Errorf("get book: %w", err)
	}
	return &book, nil
}

// DeleteBook deletes a book and its indexes.
func (s *Store) DeleteBook(ctx context.Context, id string) error {
	book, err := s.GetBook(ctx, id)
	if err != nil {
		return err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete([]byte(bookPrefix + id)); err != nil {
			return err
		}

		if err := txn.Delete(bookCreatedAtKey(book.CreatedAt, book.ID)); err != nil {
			return err
		}

		if err := txn.Delete(bookOwnerKey(book.OwnerID, book.CreatedAt, book.ID)); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("book deleted", "id", id, "title", book.Title)
	}

	return nil
}

// ListBooks returns one page of books ordered newest first.
// page is 1-based; offset is computed as (page-1)*limit.
func (s *Store) ListBooks(_ context.Context, page, limit int) ([]*domain.Book, error) {
	offset := (page - 1) * limit
	prefix := []byte(bookByCreatedAtPrefix)

	var books []*domain.Book

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		// In reverse mode, seek past the end of the prefix range so
		// iteration starts at the newest entry.
		seekKey := append(append([]byte{}, prefix...), 0xFF)

		skipped := 0
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if skipped < offset {
				skipped++
				continue
			}
			if len(books) >= limit {
				break
			}

			var bookID string
			err := it.Item().Value(func(val []byte) error {
				bookID = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			book, err := getBookTxn(txn, bookID)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					// Stale index entry; skip it rather than failing the page.
					continue
				}
				return err
			}

			books = append(books, book)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	return books, nil
}

// CountBooks returns the total number of books.
func (s *Store) CountBooks(_ context.Context) (int, error) {
	prefix := []byte(bookByCreatedAtPrefix)
	count := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false // Key-only iteration

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count books: %w", err)
	}

	return count, nil
}

// ListBooksByOwner returns all books owned by the user, newest first.
func (s *Store) ListBooksByOwner(_ context.Context, ownerID string) ([]*domain.Book, error) {
	prefix := []byte(bookByOwnerPrefix + ownerID + ":")

	var books []*domain.Book

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		seekKey := append(append([]byte{}, prefix...), 0xFF)

		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			var bookID string
			err := it.Item().Value(func(val []byte) error {
				bookID = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			book, err := getBookTxn(txn, bookID)
			if err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					continue
				}
				return err
			}

			books = append(books, book)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}

	return books, nil
}

// getBookTxn loads a book by ID inside an existing transaction.
func getBookTxn(txn *badger.Txn, id string) (*domain.Book, error) {
	item, err := txn.Get([]byte(bookPrefix + id))
	if err != nil {
		return nil, err
	}

	var book domain.Book
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &book)
	})
	if err != nil {
		return nil, err
	}

	return &book, nil
}

// bookCreatedAtKey builds the sortable created_at index key for a book.
func bookCreatedAtKey(createdAt time.Time, bookID string) []byte {
	return fmt.Appendf(nil, "%s%s:%s", bookByCreatedAtPrefix, sortableTimestamp(createdAt), bookID)
}

// bookOwnerKey builds the per-owner index key, ordered by creation time.
func bookOwnerKey(ownerID string, createdAt time.Time, bookID string) []byte {
	return fmt.Appendf(nil, "%s%s:%s:%s", bookByOwnerPrefix, ownerID, sortableTimestamp(createdAt), bookID)
}

// sortableTimestamp formats a timestamp so lexicographic key order matches
// chronological order. Nanoseconds are zero-padded to a fixed width.
func sortableTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05") + fmt.Sprintf(".%09d", t.Nanosecond()) + "Z"
}
