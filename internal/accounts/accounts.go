// Package accounts registers customers and issues login tokens.
package accounts

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/01moynul/pawshop-golang/internal/apperr"
	"github.com/01moynul/pawshop-golang/internal/auth"
	"github.com/01moynul/pawshop-golang/internal/models"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

type Service struct {
	store  Store
	tokens *auth.Tokens
}

func NewService(s Store, tokens *auth.Tokens) *Service {
	return &Service{store: s, tokens: tokens}
}

type RegisterInput struct {
	FullName    string `json:"fullName" binding:"required,max=120"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	PhoneNumber string `json:"phoneNumber" binding:"max=40"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Session is what a successful register or login returns.
type Session struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	u, err := s.create(ctx, models.RoleCustomer, in)
	if err != nil {
		return nil, err
	}
	return s.issue(u)
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	// 1. --- Find the user ---
	u, err := s.store.GetUserByEmail(ctx, in.Email)
	if apperr.IsNotFound(err) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	// 2. --- Check the password ---
	password := models.Password{Hash: u.PasswordHash}
	ok, err := password.Matches(in.Password)
	if err != nil {
		return nil, errors.Wrap(err, "compare password")
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return s.issue(u)
}

// CreateAdmin adds an administrator account. An existing email is a Conflict.
func (s *Service) CreateAdmin(ctx context.Context, email, password, name string) (*models.User, error) {
	if len(password) < 8 {
		return nil, apperr.Invalid("password", "password must be at least 8 characters")
	}
	u, err := s.create(ctx, models.RoleAdmin, RegisterInput{FullName: name, Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	log.WithField("email", u.Email).Info("admin account created")
	return u, nil
}

func (s *Service) create(ctx context.Context, role string, in RegisterInput) (*models.User, error) {
	var password models.Password
	if err := password.Set(in.Password); err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	u := &models.User{
		Role:         role,
		Email:        in.Email,
		PasswordHash: password.Hash,
		FullName:     strings.TrimSpace(in.FullName),
		PhoneNumber:  strings.TrimSpace(in.PhoneNumber),
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) issue(u *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(u.ID, u.Role)
	if err != nil {
		return nil, errors.Wrap(err, "sign token")
	}
	return &Session{Token: token, User: u}, nil
}
