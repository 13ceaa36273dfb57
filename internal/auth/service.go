package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// AdminAuthenticator checks credentials against the single configured admin account.
type AdminAuthenticator struct {
	username     string
	passwordHash []byte
	issuer       *Issuer
}

func NewAdminAuthenticator(username, passwordHash string, issuer *Issuer) *AdminAuthenticator {
	return &AdminAuthenticator{
		username:     username,
		passwordHash: []byte(passwordHash),
		issuer:       issuer,
	}
}

// Login returns a signed token when username and password match the admin account.
func (a *AdminAuthenticator) Login(username, password string) (string, error) {
	if a.username == "" || len(a.passwordHash) == 0 {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.username)) == 1
	if err := bcrypt.CompareHashAndPassword(a.passwordHash, []byte(password)); err != nil || !userOK {
		return "", ErrInvalidCredentials
	}
	return a.issuer.GenerateToken(username)
}

func (a *AdminAuthenticator) Issuer() *Issuer {
	return a.issuer
}
