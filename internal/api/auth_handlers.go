package api

import (
	"encoding/json/v2"
	"net/http"

	"github.com/inkshelfapp/inkshelf-server/internal/http/response"
	"github.com/inkshelfapp/inkshelf-server/internal/service"
)

// handleRegister creates a new account and returns a token plus the user.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		s.serviceError(w, err, "Internal Server Error")
		return
	}

	response.Created(w, resp, s.logger)
}

// handleLogin exchanges credentials for a token plus the user.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		s.serviceError(w, err, "Internal Server Error")
		return
	}

	response.Success(w, resp, s.logger)
}

// handleMe returns the authenticated user's profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	response.Success(w, currentUser(r.Context()), s.logger)
}

// handleUpdateProfile changes the caller's username or avatar.
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateProfileRequest
	if err := json.UnmarshalRead(r.Body, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.authService.UpdateProfile(r.Context(), currentUser(r.Context()).ID, req)
	if err != nil {
		s.serviceError(w, err, "Internal Server Error")
		return
	}

	response.Success(w, user, s.logger)
}
