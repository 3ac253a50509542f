package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	domainerrors "github.com/inkshelfapp/inkshelf-server/internal/errors"
	"github.com/inkshelfapp/inkshelf-server/internal/id"
	"github.com/inkshelfapp/inkshelf-server/internal/media/imagehost"
	"github.com/inkshelfapp/inkshelf-server/internal/media/images"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// BookService manages book records and their hosted images.
type BookService struct {
	store     *store.Store
	imageHost *imagehost.Client
	logger    *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *store.Store, imageHost *imagehost.Client, logger *slog.Logger) *BookService {
	return &BookService{
		store:     store,
		imageHost: imageHost,
		logger:    logger,
	}
}

// CreateBookRequest contains the data for a new book recommendation.
type CreateBookRequest struct {
	Title   string  `json:"title"`
	Caption string  `json:"caption"`
	Rating  float64 `json:"rating"`
	Image   string  `json:"image"` // base64 data URI or remote URL
}

// BookWithOwner is a book with its owner's public profile attached.
// The outer User field takes precedence over the embedded OwnerID for
// the "user" JSON key.
type BookWithOwner struct {
	domain.Book
	User *domain.Owner `json:"user"`
}

// ListBooksResult is one page of books plus pagination metadata.
type ListBooksResult struct {
	Books       []*BookWithOwner `json:"books"`
	CurrentPage int              `json:"currentPage"`
	TotalBooks  int              `json:"totalBooks"`
	TotalPages  int              `json:"totalPages"`
}

// UserBooksResult is the full list of one user's books.
type UserBooksResult struct {
	Books []*domain.Book `json:"books"`
}

// Create uploads the book's image to the image host and persists the book.
// The stored Image is always the host's canonical URL, never the raw payload.
func (s *BookService) Create(ctx context.Context, owner *domain.User, req CreateBookRequest) (*domain.Book, error) {
	if req.Title == "" || req.Caption == "" || req.Rating == 0 || req.Image == "" {
		return nil, domainerrors.Validation("Please provide all fields")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, domainerrors.Validation("Rating must be between 1 and 5")
	}

	upload, err := s.imageHost.Upload(ctx, req.Image)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeUpload, "Image upload failed")
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		ID:      bookID,
		Title:   req.Title,
		Caption: req.Caption,
		Rating:  req.Rating,
		Image:   upload.SecureURL,
		OwnerID: owner.ID,
	}
	book.InitTimestamps()

	// Placeholder hash is cosmetic; never fail the create over it.
	if data, decodeErr := images.DecodeDataURI(req.Image); decodeErr == nil {
		if hash, hashErr := images.ComputeBlurHash(data); hashErr == nil {
			book.ImageBlurhash = hash
		} else if s.logger != nil {
			s.logger.Debug("blurhash computation failed",
				"book_id", bookID,
				"error", hashErr,
			)
		}
	}

	if err := s.store.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	return book, nil
}

// List returns one page of all books, newest first, with owner profiles
// attached. The total count is read separately from the page, so a book
// created between the two reads can skew the metadata by one; the page
// content itself is always consistent.
func (s *BookService) List(ctx context.Context, page, limit int) (*ListBooksResult, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	books, err := s.store.ListBooks(ctx, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	expanded, err := s.attachOwners(ctx, books)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("count books: %w", err)
	}

	return &ListBooksResult{
		Books:       expanded,
		CurrentPage: page,
		TotalBooks:  total,
		TotalPages:  (total + limit - 1) / limit,
	}, nil
}

// ListByOwner returns all of one user's books, newest first.
func (s *BookService) ListByOwner(ctx context.Context, ownerID string) (*UserBooksResult, error) {
	books, err := s.store.ListBooksByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list books by owner: %w", err)
	}

	if books == nil {
		books = []*domain.Book{}
	}

	return &UserBooksResult{Books: books}, nil
}

// Delete removes a book after checking the actor owns it. The hosted
// image is destroyed best-effort: a host failure is logged and the
// record is deleted regardless, which can leave an orphaned image.
func (s *BookService) Delete(ctx context.Context, actor *domain.User, bookID string) error {
	book, err := s.store.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, store.ErrBookNotFound) {
			return domainerrors.NotFound("Book not found")
		}
		return fmt.Errorf("get book: %w", err)
	}

	if !book.IsOwnedBy(actor.ID) {
		return domainerrors.Unauthorized("You are not authorized to delete this book")
	}

	if book.Image != "" && s.imageHost.Owns(book.Image) {
		publicID := imagehost.PublicIDFromURL(book.Image)
		if err := s.imageHost.Destroy(ctx, publicID); err != nil && s.logger != nil {
			s.logger.Warn("failed to delete image from host",
				"book_id", bookID,
				"public_id", publicID,
				"error", err,
			)
		}
	}

	if err := s.store.DeleteBook(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}

	return nil
}

// attachOwners expands each book's owner into their public profile.
// Owners are fetched once per distinct user.
func (s *BookService) attachOwners(ctx context.Context, books []*domain.Book) ([]*BookWithOwner, error) {
	owners := make(map[string]*domain.Owner)
	result := make([]*BookWithOwner, 0, len(books))

	for _, book := range books {
		owner, ok := owners[book.OwnerID]
		if !ok {
			user, err := s.store.GetUser(ctx, book.OwnerID)
			if err != nil {
				if errors.Is(err, store.ErrUserNotFound) {
					// Owner account is gone; keep the book with no profile.
					owners[book.OwnerID] = nil
					result = append(result, &BookWithOwner{Book: *book})
					continue
				}
				return nil, fmt.Errorf("get book owner: %w", err)
			}
			profile := user.AsOwner()
			owner = &profile
			owners[book.OwnerID] = owner
		}

		result = append(result, &BookWithOwner{Book: *book, User: owner})
	}

	return result, nil
}
