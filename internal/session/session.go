// Package session keeps the signed-in user of the command-line client.
//
// Authentication is a local mock: any well-formed credentials sign in and nothing is
// checked against a server.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Key is the store key holding the current user.
const Key = "optibro_auth_user"

// DemoUserName is the display name given to users who log in without registering.
const DemoUserName = "Demo User"

// ErrNotAuthenticated is returned when an operation needs a signed-in user.
var ErrNotAuthenticated = errors.New("not logged in")

// User is the signed-in identity.
type User struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type loginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type registerInput struct {
	Name     string `validate:"required,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

// Manager implements login, register and logout over a Store.
type Manager struct {
	store    Store
	validate *validator.Validate
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, validate: validator.New()}
}

// Login signs in with any valid email and non-empty password.
func (m *Manager) Login(email, password string) (*User, error) {
	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := m.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	u := &User{Name: DemoUserName, Email: in.Email}
	if err := m.save(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Register signs in as a new user with the given display name.
func (m *Manager) Register(name, email, password string) (*User, error) {
	in := registerInput{Name: strings.TrimSpace(name), Email: strings.TrimSpace(email), Password: password}
	if err := m.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}
	u := &User{Name: in.Name, Email: in.Email}
	if err := m.save(u); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout forgets the current user. It succeeds when nobody is signed in.
func (m *Manager) Logout() error {
	return m.store.Delete(Key)
}

// Current returns the signed-in user or ErrNotAuthenticated.
func (m *Manager) Current() (*User, error) {
	data, err := m.store.Get(Key)
	if errors.Is(err, ErrNoValue) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, err
	}
	var u User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &u, nil
}

// IsAuthenticated reports whether a readable session exists.
func (m *Manager) IsAuthenticated() bool {
	u, err := m.Current()
	return err == nil && u != nil
}

func (m *Manager) save(u *User) error {
	data, err := json.Marshal(u)
	if err != nil {
		return err
	}
	return m.store.Set(Key, data)
}

// validationError flattens validator output into one readable message.
func validationError(err error) error {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		field := strings.ToLower(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s characters", field, fe.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
