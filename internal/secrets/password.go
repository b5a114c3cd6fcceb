// Package secrets keeps channel credentials in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

// KeyringService groups the engine's secrets in the OS keychain.
const KeyringService = "techflow"

var ErrNotFound = errors.New("secret not found")

// Account is the keyring account name for one credential field of a
// channel, e.g. techflow:telegram:token.
func Account(channel, field string) string {
	return fmt.Sprintf("techflow:%s:%s", strings.ToLower(channel), strings.ToLower(field))
}

func Get(channel, field string) (string, error) {
	v, err := keyring.Get(KeyringService, Account(channel, field))
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(v) == "" {
		return "", ErrNotFound
	}
	return v, nil
}

func Set(channel, field, value string) error {
	if strings.TrimSpace(channel) == "" || strings.TrimSpace(field) == "" {
		return errors.New("channel and field are required")
	}
	if strings.TrimSpace(value) == "" {
		return errors.New("secret value is empty")
	}
	return keyring.Set(KeyringService, Account(channel, field), value)
}

func Delete(channel, field string) error {
	if strings.TrimSpace(channel) == "" || strings.TrimSpace(field) == "" {
		return errors.New("channel and field are required")
	}
	err := keyring.Delete(KeyringService, Account(channel, field))
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
