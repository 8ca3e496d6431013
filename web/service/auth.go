package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/authgate/authgate/database/model"
	"github.com/authgate/authgate/logger"
	"github.com/authgate/authgate/util/crypto"
	"github.com/authgate/authgate/web/session"
)

// MinPasswordLength is the minimum number of characters of a trimmed password.
const MinPasswordLength = 6

// Hasher hashes and verifies passwords.
type Hasher interface {
	Hash(plaintext string) (string, error)
	Verify(hash, plaintext string) bool
}

// Identity is the authentication state resolved for one request.
// The zero value is an anonymous visitor.
type Identity struct {
	Authenticated bool                 `json:"authenticated"`
	User          *session.SessionUser `json:"user"`
	IsAdmin       bool                 `json:"isAdmin"`
}

type AuthService struct {
	users  CredentialStore
	hasher Hasher

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users CredentialStore, hasher Hasher) *AuthService {
	return &AuthService{users: users, hasher: hasher}
}

// Signup validates the form and creates a non-admin account. Validation stops at the
// first failing rule.
func (s *AuthService) Signup(ctx context.Context, email, confirmEmail, password string) error {
	if err := validateSignup(email, confirmEmail, password); err != nil {
		return err
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if exists {
		return ErrEmailTaken
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	user := &model.User{Email: email, PasswordHash: hash, IsAdmin: false}
	if err := s.users.Insert(ctx, user); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return ErrEmailTaken
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	logger.Infof("account %d created for %s", user.Id, email)
	return nil
}

func validateSignup(email, confirmEmail, password string) error {
	if email == "" || confirmEmail == "" || password == "" {
		return fmt.Errorf("%w: all fields are required", ErrInvalidInput)
	}
	if !strings.Contains(email, "@") {
		return fmt.Errorf("%w: email must contain @", ErrInvalidInput)
	}
	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLength {
		return fmt.Errorf("%w: password shorter than %d characters", ErrInvalidInput, MinPasswordLength)
	}
	if len(password) > crypto.MaxPasswordBytes {
		return fmt.Errorf("%w: password longer than %d bytes", ErrInvalidInput, crypto.MaxPasswordBytes)
	}
	if email != confirmEmail {
		return fmt.Errorf("%w: emails do not match", ErrInvalidInput)
	}
	return nil
}

// Login checks the credentials and on success marks st as authenticated. The caller
// must save st before redirecting.
func (s *AuthService) Login(ctx context.Context, st *session.State, email, password string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user == nil {
		// Same bcrypt work as a wrong password.
		s.hasher.Verify(s.dummy(), password)
		return ErrInvalidCredentials
	}
	if !s.hasher.Verify(user.PasswordHash, password) {
		return ErrInvalidCredentials
	}

	st.User = &session.SessionUser{Id: user.Id, Email: user.Email}
	st.IsAuthenticated = true
	st.PendingEcho = nil
	return nil
}

// Logout clears the identity from st. The session itself is kept.
func (s *AuthService) Logout(st *session.State) {
	st.User = nil
	st.IsAuthenticated = false
}

// ResolveIdentity derives the request identity from st. The admin flag is read from
// the credential store on every call; a deleted account resolves to anonymous.
func (s *AuthService) ResolveIdentity(ctx context.Context, st *session.State) (Identity, error) {
	if st == nil || !st.IsAuthenticated || st.User == nil {
		return Identity{}, nil
	}
	user, err := s.users.FindByID(ctx, st.User.Id)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if user == nil {
		logger.Warningf("session references missing account %d", st.User.Id)
		return Identity{}, nil
	}
	u := *st.User
	return Identity{Authenticated: true, User: &u, IsAdmin: user.IsAdmin}, nil
}

func (s *AuthService) dummy() string {
	s.dummyOnce.Do(func() {
		hash, err := s.hasher.Hash("authgate-dummy-password")
		if err != nil {
			logger.Warning("dummy hash:", err)
		}
		s.dummyHash = hash
	})
	return s.dummyHash
}
