package testgenpro

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserExists         = errors.New("username already exists")
)

// Users is an in-memory table of demo accounts with bcrypt-hashed passwords
type Users struct {
	mu     sync.RWMutex
	hashes map[string][]byte
	cost   int
}

// NewUsers hashes the given name → password pairs
func NewUsers(plain map[string]string) (*Users, error) {
	return newUsers(plain, bcrypt.DefaultCost)
}

func newUsers(plain map[string]string, cost int) (*Users, error) {
	u := &Users{hashes: make(map[string][]byte), cost: cost}
	for name, password := range plain {
		if err := u.Create(name, password); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// Create adds an account; existing names are rejected
func (u *Users) Create(name, password string) error {
	if name == "" || password == "" {
		return ErrInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), u.cost)
	if err != nil {
		return err
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if _, exists := u.hashes[name]; exists {
		return ErrUserExists
	}
	u.hashes[name] = hash
	return nil
}

// Authenticate checks a name and password
func (u *Users) Authenticate(name, password string) error {
	u.mu.RLock()
	hash, ok := u.hashes[name]
	u.mu.RUnlock()
	if !ok {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
