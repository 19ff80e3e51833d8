// Package secrets stores candidate portal passwords in the OS keychain so
// the roster file can leave them blank.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeyringService groups the engine's entries in the OS keychain.
	KeyringService = "jobbot"
)

// ErrNotFound means the keychain holds no password for the candidate.
var ErrNotFound = errors.New("candidate password not found in keychain")

// CandidateAccount is the keychain account name for a candidate.
func CandidateAccount(email string) string {
	return "jobbot:candidate:" + strings.ToLower(strings.TrimSpace(email))
}

func GetCandidatePassword(email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", errors.New("candidate email is empty")
	}
	pw, err := keyring.Get(KeyringService, CandidateAccount(email))
	if errors.Is(err, keyring.ErrNotFound) || (err == nil && strings.TrimSpace(pw) == "") {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return pw, nil
}

func SetCandidatePassword(email, password string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("candidate email is empty")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, CandidateAccount(email), password)
}

func DeleteCandidatePassword(email string) error {
	if strings.TrimSpace(email) == "" {
		return errors.New("candidate email is empty")
	}
	err := keyring.Delete(KeyringService, CandidateAccount(email))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
