package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkshelfapp/inkshelf-server/internal/domain"
	domainerrors "github.com/inkshelfapp/inkshelf-server/internal/errors"
	"github.com/inkshelfapp/inkshelf-server/internal/logger"
	"github.com/inkshelfapp/inkshelf-server/internal/media/imagehost"
	"github.com/inkshelfapp/inkshelf-server/internal/store"
)

// imageHostFixture records every upload and destroy the service makes.
type imageHostFixture struct {
	mu        sync.Mutex
	uploads   []string // assigned public IDs, in upload order
	destroys  []string // destroyed public IDs
	failCalls bool
	server    *httptest.Server
}

func newImageHostFixture(t *testing.T) (*imageHostFixture, *imagehost.Client) {
	t.Helper()

	f := &imageHostFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()

		if f.failCalls {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		require.NoError(t, r.ParseForm())

		switch {
		case strings.HasSuffix(r.URL.Path, "/image/upload"):
			// Embed the assigned ID in the delivery URL like the real host.
			publicID := r.PostForm.Get("public_id")
			f.uploads = append(f.uploads, publicID)
			w.Header().Set("Content-Type", "application/json")
			_ = json.MarshalWrite(w, map[string]string{
				"public_id":  publicID,
				"secure_url": f.server.URL + "/inkshelf-test/image/upload/v1/" + publicID + ".jpg",
			})
		case strings.HasSuffix(r.URL.Path, "/image/destroy"):
			f.destroys = append(f.destroys, r.PostForm.Get("public_id"))
			w.Header().Set("Content-Type", "application/json")
			_ = json.MarshalWrite(w, map[string]string{"result": "ok"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(f.server.Close)

	client := imagehost.New(imagehost.Config{
		BaseURL:   f.server.URL,
		CloudName: "inkshelf-test",
		APIKey:    "key123",
		APISecret: "secret456",
	}, logger.NewTest().Logger)

	return f, client
}

func (f *imageHostFixture) setFail(fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCalls = fail
}

func (f *imageHostFixture) destroyedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.destroys...)
}

func (f *imageHostFixture) uploadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

func (f *imageHostFixture) uploadedIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string{}, f.uploads...)
}

// setupBookService builds a BookService on a temporary store and a fake
// image host.
func setupBookService(t *testing.T) (*BookService, *store.Store, *imageHostFixture) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	fixture, client := newImageHostFixture(t)

	return NewBookService(s, client, logger.NewTest().Logger), s, fixture
}

// seedUser persists a user directly in the store.
func seedUser(t *testing.T, s *store.Store, id, username string) *domain.User {
	t.Helper()

	user := &domain.User{
		ID:           id,
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "irrelevant",
		ProfileImage: "https://api.dicebear.com/9.x/avataaars/svg?seed=" + username,
	}
	user.InitTimestamps()
	require.NoError(t, s.CreateUser(context.Background(), user))

	return user
}

// pngDataURI builds a valid image payload so blurhash computation succeeds.
func pngDataURI(t *testing.T) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255}) //nolint:gosec // Bounded loop values
		}
	}

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func validCreateRequest(t *testing.T) CreateBookRequest {
	return CreateBookRequest{
		Title:   "The Name of the Wind",
		Caption: "A wizard school memoir with music",
		Rating:  5,
		Image:   pngDataURI(t),
	}
}

func TestBookCreate(t *testing.T) {
	svc, s, fixture := setupBookService(t)
	owner := seedUser(t, s, "user-owner", "owner")

	book, err := svc.Create(context.Background(), owner, validCreateRequest(t))
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(book.ID, "book-"))
	assert.Equal(t, "The Name of the Wind", book.Title)
	assert.Equal(t, owner.ID, book.OwnerID)
	assert.Contains(t, book.Image, "/image/upload/")
	assert.NotEmpty(t, book.ImageBlurhash)
	assert.Equal(t, 1, fixture.uploadCount())

	// Persisted, not just returned.
	stored, err := s.GetBook(context.Background(), book.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Image, stored.Image)
}

func TestBookCreate_MissingFields(t *testing.T) {
	svc, s, fixture := setupBookService(t)
	owner := seedUser(t, s, "user-owner", "owner")

	tests := []struct {
		name   string
		mutate func(*CreateBookRequest)
	}{
		{"no title", func(r *CreateBookRequest) { r.Title = "" }},
		{"no caption", func(r *CreateBookRequest) { r.Caption = "" }},
		{"no rating", func(r *CreateBookRequest) { r.Rating = 0 }},
		{"no image", func(r *CreateBookRequest) { r.Image = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest(t)
			tt.mutate(&req)

			_, err := svc.Create(context.Background(), owner, req)
			require.Error(t, err)
			assert.ErrorIs(t, err, domainerrors.ErrValidation)
			assert.Contains(t, err.Error(), "Please provide all fields")
		})
	}

	// Validation failures never reach the image host.
	assert.Equal(t, 0, fixture.uploadCount())
}

func TestBookCreate_RatingOutOfRange(t *testing.T) {
	svc, s, _ := setupBookService(t)
	owner := seedUser(t, s, "user-owner", "owner")

	req := validCreateRequest(t)
	req.Rating = 6

	_, err := svc.Create(context.Background(), owner, req)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestBookCreate_UploadFailure(t *testing.T) {
	svc, s, fixture := setupBookService(t)
	owner := seedUser(t, s, "user-owner", "owner")
	fixture.setFail(true)

	_, err := svc.Create(context.Background(), owner, validCreateRequest(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUpload)

	// Nothing persisted when the upload fails.
	books, listErr := s.ListBooks(context.Background(), 1, 10)
	require.NoError(t, listErr)
	assert.Empty(t, books)
}

func TestBookList(t *testing.T) {
	svc, s, _ := setupBookService(t)
	ctx := context.Background()
	owner := seedUser(t, s, "user-owner", "owner")

	for i := 0; i < 15; i++ {
		req := validCreateRequest(t)
		req.Title = fmt.Sprintf("Book %02d", i)
		_, err := svc.Create(ctx, owner, req)
		require.NoError(t, err)
		time.Sleep(time.Millisecond) // distinct created_at ordering
	}

	page1, err := svc.List(ctx, 1, 10)
	require.NoError(t, err)

	assert.Len(t, page1.Books, 10)
	assert.Equal(t, 1, page1.CurrentPage)
	assert.Equal(t, 15, page1.TotalBooks)
	assert.Equal(t, 2, page1.TotalPages)
	assert.Equal(t, "Book 14", page1.Books[0].Title)

	// Owner profile is attached, hash never is.
	require.NotNil(t, page1.Books[0].User)
	assert.Equal(t, "owner", page1.Books[0].User.Username)
	assert.Contains(t, page1.Books[0].User.ProfileImage, "seed=owner")

	page2, err := svc.List(ctx, 2, 10)
	require.NoError(t, err)
	assert.Len(t, page2.Books, 5)
	assert.Equal(t, 2, page2.CurrentPage)
	assert.Equal(t, "Book 04", page2.Books[0].Title)
}

func TestBookList_ClampsPageAndLimit(t *testing.T) {
	svc, s, _ := setupBookService(t)
	ctx := context.Background()
	owner := seedUser(t, s, "user-owner", "owner")

	_, err := svc.Create(ctx, owner, validCreateRequest(t))
	require.NoError(t, err)

	result, err := svc.List(ctx, -3, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.CurrentPage)
	assert.Len(t, result.Books, 1)

	result, err = svc.List(ctx, 1, 100000)
	require.NoError(t, err)
	assert.Len(t, result.Books, 1)
	assert.Equal(t, 1, result.TotalPages)
}

func TestBookList_Empty(t *testing.T) {
	svc, _, _ := setupBookService(t)

	result, err := svc.List(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Empty(t, result.Books)
	assert.Equal(t, 0, result.TotalBooks)
	assert.Equal(t, 0, result.TotalPages)
}

func TestBookListByOwner(t *testing.T) {
	svc, s, _ := setupBookService(t)
	ctx := context.Background()
	alice := seedUser(t, s, "user-alice", "alice")
	bob := seedUser(t, s, "user-bob", "bob")

	for i := 0; i < 3; i++ {
		req := validCreateRequest(t)
		req.Title = fmt.Sprintf("Alice %d", i)
		_, err := svc.Create(ctx, alice, req)
		require.NoError(t, err)
		time.Sleep(time.Millisecond)
	}
	_, err := svc.Create(ctx, bob, validCreateRequest(t))
	require.NoError(t, err)

	result, err := svc.ListByOwner(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, result.Books, 3)
	assert.Equal(t, "Alice 2", result.Books[0].Title)

	for _, b := range result.Books {
		assert.Equal(t, alice.ID, b.OwnerID)
	}
}

func TestBookDelete(t *testing.T) {
	svc, s, fixture := setupBookService(t)
	ctx := context.Background()
	owner := seedUser(t, s, "user-owner", "owner")

	book, err := svc.Create(ctx, owner, validCreateRequest(t))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, owner, book.ID))

	_, err = s.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, store.ErrBookNotFound)

	// Exactly one destroy, naming the ID the upload registered: the
	// URL-derived ID and the host-assigned ID must agree.
	destroys := fixture.destroyedIDs()
	require.Len(t, destroys, 1)
	assert.Equal(t, imagehost.PublicIDFromURL(book.Image), destroys[0])

	uploads := fixture.uploadedIDs()
	require.Len(t, uploads, 1)
	assert.Equal(t, uploads[0], destroys[0])
}

func TestBookDelete_NotFound(t *testing.T) {
	svc, s, _ := setupBookService(t)
	owner := seedUser(t, s, "user-owner", "owner")

	err := svc.Delete(context.Background(), owner, "book-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
	assert.Contains(t, err.Error(), "Book not found")
}

func TestBookDelete_NotOwner(t *testing.T) {
	svc, s, fixture := setupBookService(t)
	ctx := context.Background()
	owner := seedUser(t, s, "user-owner", "owner")
	intruder := seedUser(t, s, "user-intruder", "intruder")

	book, err := svc.Create(ctx, owner, validCreateRequest(t))
	require.NoError(t, err)

	err = svc.Delete(ctx, intruder, book.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
	assert.Contains(t, err.Error(), "You are not authorized to delete this book")

	// The book and its image survive.
	_, err = s.GetBook(ctx, book.ID)
	require.NoError(t, err)
	assert.Empty(t, fixture.destroyedIDs())
}

func TestBookDelete_ImageHostFailure(t *testing.T) {
	svc, s, fixture := setupBookService(t)
	ctx := context.Background()
	owner := seedUser(t, s, "user-owner", "owner")

	book, err := svc.Create(ctx, owner, validCreateRequest(t))
	require.NoError(t, err)

	// Host failures are swallowed; the record still goes away.
	fixture.setFail(true)
	require.NoError(t, svc.Delete(ctx, owner, book.ID))

	_, err = s.GetBook(ctx, book.ID)
	assert.ErrorIs(t, err, store.ErrBookNotFound)
}
