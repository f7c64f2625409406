package services

import (
	"fmt"
	"log/slog"
	"roomchat/auth"
	"roomchat/domain"
	"roomchat/errors"
	"roomchat/repositories"
)

type IAuthService interface {
	Login(username, password string) (Token, domain.User, error)
	Register(username, password string) (Token, domain.User, error)
	Authenticate(token string) (domain.UserID, error)
}

type Token string

func (t Token) String() string {
	return string(t)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.Tokens
	log            *slog.Logger
}

func NewAuthService(repo repositories.IUserRepository, tokens *auth.Tokens, log *slog.Logger) *AuthService {
	return &AuthService{userRepository: repo, tokens: tokens, log: log}
}

func (s *AuthService) Register(username, password string) (Token, domain.User, error) {
	// Validate before any expensive cryptographic operation
	if err := auth.ValidateRegister(auth.RegisterRequest{Username: username, Password: password}); err != nil {
		return "", domain.User{}, fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", domain.User{}, fmt.Errorf("hashing failed: %w", err)
	}

	// ErrUserAlreadyExists propagates when the username is taken
	user, err := s.userRepository.CreateUser(username, hashedPassword)
	if err != nil {
		return "", domain.User{}, err
	}
	s.log.Info("User registered", "user_id", user.ID, "username", user.Username)

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return "", domain.User{}, err
	}
	return Token(token), user, nil
}

func (s *AuthService) Login(username, password string) (Token, domain.User, error) {
	user, err := s.userRepository.GetUserByUsername(username)
	if err != nil {
		// Same error for unknown user and wrong password
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", domain.User{}, errors.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Username)
	if err != nil {
		return "", domain.User{}, err
	}
	return Token(token), user, nil
}

// Authenticate turns a bearer token into the user id the chat core expects.
func (s *AuthService) Authenticate(token string) (domain.UserID, error) {
	claims, err := s.tokens.ValidateToken(token)
	if err != nil {
		return 0, err
	}
	return domain.UserID(claims.UserID), nil
}
