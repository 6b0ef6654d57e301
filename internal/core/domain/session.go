// internal/core/domain/session.go
package domain

import "time"

// Token is an OAuth2 token pair issued by the backend.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Valid reports whether the access token is present and not yet expired.
// A zero ExpiresAt means the backend gave no expiry.
func (t Token) Valid(now time.Time) bool {
	if t.AccessToken == "" {
		return false
	}
	return t.ExpiresAt.IsZero() || now.Before(t.ExpiresAt)
}

// UploadedFile is the File record created by an upload.
type UploadedFile struct {
	Name      string `json:"name"`
	FileName  string `json:"file_name"`
	FileURL   string `json:"file_url"`
	IsPrivate bool   `json:"is_private"`
}
