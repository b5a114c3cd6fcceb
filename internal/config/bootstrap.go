package config

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const FileName = "config.yml"

// EnsureUserConfig returns dataDir/config.yml, seeding it from the embedded
// default on first start. The seeded file carries a freshly generated
// app.api_key.
func EnsureUserConfig(dataDir string) (string, error) {
	path := filepath.Join(dataDir, FileName)
	switch _, err := os.Stat(path); {
	case err == nil:
		return path, nil
	case !errors.Is(err, os.ErrNotExist):
		return "", err
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	seed, err := seedYAML()
	if err != nil {
		return "", err
	}
	if err := writeFileAtomic(path, seed); err != nil {
		return "", fmt.Errorf("seed %s: %w", path, err)
	}
	return path, nil
}

func seedYAML() ([]byte, error) {
	key, err := NewAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate api key: %w", err)
	}
	return bytes.Replace(defaultYAML, []byte(`api_key: ""`), []byte(`api_key: "`+key+`"`), 1), nil
}

// NewAPIKey returns 32 random bytes, hex encoded.
func NewAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
