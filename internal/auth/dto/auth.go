package dto

import authdomain "finmail-backend/internal/auth/domain"

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name" binding:"required"`
}

// GoogleConnectRequest carries the OAuth tokens obtained by the client-side
// consent flow; the backend stores them for mailbox access.
type GoogleConnectRequest struct {
	AccessToken  string `json:"access_token" binding:"required"`
	RefreshToken string `json:"refresh_token"`
}

// IMAPConnectRequest attaches an IMAP mailbox to the account
type IMAPConnectRequest struct {
	Host     string `json:"host" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	AccessToken string           `json:"access_token"`
	User        *authdomain.User `json:"user"`
}
