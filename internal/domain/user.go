package domain

// User represents a registered account in the system.
type User struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	Email        string `json:"email"`
	PasswordHash string `json:"password_hash,omitempty"` // Stored hashed, cleared before leaving the auth layer
	ProfileImage string `json:"profile_image"`
	Timestamps
}

// Sanitized returns a copy of the user with sensitive fields removed.
// Anything attached to a request context or serialized to a client goes
// through this first.
func (u *User) Sanitized() *User {
	clean := *u
	clean.PasswordHash = ""
	return &clean
}

// Owner is the projection of a user embedded in book listings.
// Only the public display fields are exposed.
type Owner struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
}

// AsOwner returns the user's public owner projection.
func (u *User) AsOwner() Owner {
	return Owner{
		Username:     u.Username,
		ProfileImage: u.ProfileImage,
	}
}
