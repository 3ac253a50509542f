package imagehost

import "errors"

var (
	ErrNotConfigured = errors.New("imagehost: credentials not configured")
	ErrBadRequest    = errors.New("imagehost: bad request")
	ErrUnauthorized  = errors.New("imagehost: invalid credentials")
	ErrRateLimited   = errors.New("imagehost: rate limited by server")
	ErrServer        = errors.New("imagehost: server error")
)
