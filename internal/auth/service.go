package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/unicode/norm"

	"github.com/tss1979/timetracker/internal/models"
	"github.com/tss1979/timetracker/internal/store"
)

var (
	ErrMissingCredentials = errors.New("username and password are required")
	ErrPasswordTooLong    = errors.New("password must be at most 72 bytes")
)

// Accounts creates users and checks their passwords.
type Accounts struct {
	users store.Users
	cost  int

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAccounts uses bcrypt with the given cost; pass bcrypt.DefaultCost in
// production.
func NewAccounts(users store.Users, cost int) *Accounts {
	return &Accounts{users: users, cost: cost}
}

// NormalizeUsername puts a username in Unicode NFC so that visually identical
// names compare equal. Case is preserved.
func NormalizeUsername(username string) string {
	return norm.NFC.String(username)
}

// CreateUser returns the id of the user called username, creating it when
// needed. An existing user's password is left untouched; created reports
// whether a new user was inserted.
func (a *Accounts) CreateUser(ctx context.Context, username, password string) (id string, created bool, err error) {
	if username == "" || password == "" {
		return "", false, ErrMissingCredentials
	}
	username = NormalizeUsername(username)

	existing, err := a.users.FindUserByUsername(ctx, username)
	if err == nil {
		return existing.ID, false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return "", false, fmt.Errorf("look up user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return "", false, ErrPasswordTooLong
	}
	if err != nil {
		return "", false, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		PasswordHash: string(hashed),
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.CreateUser(ctx, user); err != nil {
		// Another request created the same username first.
		if errors.Is(err, store.ErrDuplicate) {
			winner, findErr := a.users.FindUserByUsername(ctx, username)
			if findErr != nil {
				return "", false, fmt.Errorf("look up user after conflict: %w", findErr)
			}
			return winner.ID, false, nil
		}
		return "", false, fmt.Errorf("create user: %w", err)
	}
	return user.ID, true, nil
}

// VerifyCredentials returns the user when the password matches, and nil
// otherwise. Unknown usernames cost the same bcrypt comparison as known ones.
func (a *Accounts) VerifyCredentials(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	user, err := a.users.FindUserByUsername(ctx, NormalizeUsername(username))
	if errors.Is(err, store.ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(a.dummy(), []byte(password))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil
	}
	return user, nil
}

func (a *Accounts) dummy() []byte {
	a.dummyOnce.Do(func() {
		a.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("timing-equaliser"), a.cost)
	})
	return a.dummyHash
}
