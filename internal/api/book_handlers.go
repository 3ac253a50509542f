package api

import (
	"encoding/json/v2"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/inkshelfapp/inkshelf-server/internal/http/response"
	"github.com/inkshelfapp/inkshelf-server/internal/service"
)

// handleCreateBook uploads the image and persists a new book.
func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var req service.CreateBookRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	book, err := s.bookService.Create(r.Context(), currentUser(r.Context()), req)
	if err != nil {
		s.serviceError(w, err, "Server Error")
		return
	}

	response.Created(w, book, s.logger)
}

// handleListBooks returns a page of all books, newest first.
func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 10)

	result, err := s.bookService.List(r.Context(), page, limit)
	if err != nil {
		s.serviceError(w, err, "Internal Server Error")
		return
	}

	response.Success(w, result, s.logger)
}

// handleListMyBooks returns every book owned by the caller.
func (s *Server) handleListMyBooks(w http.ResponseWriter, r *http.Request) {
	result, err := s.bookService.ListByOwner(r.Context(), currentUser(r.Context()).ID)
	if err != nil {
		s.serviceError(w, err, "Internal Server Error")
		return
	}

	response.Success(w, result, s.logger)
}

// handleDeleteBook removes a book the caller owns.
func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "id")

	if err := s.bookService.Delete(r.Context(), currentUser(r.Context()), bookID); err != nil {
		s.serviceError(w, err, "Internal Server Error")
		return
	}

	response.Success(w, map[string]string{"message": "Book deleted successfully"}, s.logger)
}

// queryInt parses an integer query parameter, falling back to def for
// missing or malformed values. Range clamping happens in the service.
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return n
}
