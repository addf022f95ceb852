package usecase

import (
	"errors"
	"time"

	authdomain "finmail-backend/internal/auth/domain"
	authdto "finmail-backend/internal/auth/dto"
	"finmail-backend/internal/auth/repository"
	"finmail-backend/pkg/config"

	"github.com/golang-jwt/jwt/v5"
)

// AuthUsecase defines the interface for authentication business logic
type AuthUsecase interface {
	Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error)
	Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error)
	ConnectGoogle(userID string, req *authdto.GoogleConnectRequest) error
	ConnectIMAP(userID string, req *authdto.IMAPConnectRequest) error
	ValidateToken(tokenString string) (*authdomain.User, error)
	GetUser(userID string) (*authdomain.User, error)
}

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo repository.UserRepository
	config   *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		config:   cfg,
	}
}

func (u *authUsecase) Login(req *authdto.LoginRequest) (*authdto.TokenResponse, error) {
	user, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil || !repository.CheckPasswordHash(req.Password, user.Password) {
		return nil, errors.New("invalid email or password")
	}

	return u.tokenResponse(user)
}

func (u *authUsecase) Register(req *authdto.RegisterRequest) (*authdto.TokenResponse, error) {
	existing, err := u.userRepo.FindByEmail(req.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, errors.New("email already registered")
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &authdomain.User{
		Email:    req.Email,
		Password: hashedPassword,
		Name:     req.Name,
		Provider: "local",
	}
	if err := u.userRepo.Create(user); err != nil {
		return nil, err
	}

	return u.tokenResponse(user)
}

// ConnectGoogle stores the mailbox OAuth tokens and switches the account to
// the Gmail provider.
func (u *authUsecase) ConnectGoogle(userID string, req *authdto.GoogleConnectRequest) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	user.Provider = "google"
	user.AccessToken = req.AccessToken
	if req.RefreshToken != "" {
		user.RefreshToken = req.RefreshToken
	}
	return u.userRepo.Update(user)
}

// ConnectIMAP attaches an IMAP mailbox to the account
func (u *authUsecase) ConnectIMAP(userID string, req *authdto.IMAPConnectRequest) error {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("user not found")
	}

	user.Provider = "imap"
	user.IMAPHost = req.Host
	user.IMAPPassword = req.Password
	return u.userRepo.Update(user)
}

func (u *authUsecase) GetUser(userID string) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (u *authUsecase) tokenResponse(user *authdomain.User) (*authdto.TokenResponse, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"email":   user.Email,
		"exp":     time.Now().Add(u.config.JWTExpiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(u.config.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &authdto.TokenResponse{
		AccessToken: signed,
		User:        user,
	}, nil
}

func (u *authUsecase) ValidateToken(tokenString string) (*authdomain.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(u.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	user, err := u.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errors.New("user not found")
	}
	return user, nil
}
