package models

import "time"

// TokenResponse is a freshly issued access/refresh pair.
type TokenResponse struct {
	AccessToken           string    `json:"accessToken"`
	RefreshToken          string    `json:"refreshToken"`
	AccessTokenExpiresAt  time.Time `json:"accessTokenExpires"`
	RefreshTokenExpiresAt time.Time `json:"refreshTokenExpires"`
}

// AuthResponse is returned by a successful sign-in.
type AuthResponse struct {
	TokenResponse
	User PublicUser `json:"user"`
}
