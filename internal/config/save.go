package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SaveAtomic validates cfg and replaces path with its normalized form. The
// previous file is kept as path.bak.
func SaveAtomic(path string, cfg Config) error {
	norm, res := NormalizeAndValidate(cfg)
	if !res.OK() {
		return res
	}

	b, err := yaml.Marshal(&norm)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	bak := path + ".bak"
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(bak)
		if err := os.Rename(path, bak); err != nil {
			return fmt.Errorf("backup config: %w", err)
		}
	}
	return writeFileAtomic(path, b)
}

// writeFileAtomic writes b next to path and renames it into place. The file
// may carry channel tokens and is created owner-only.
func writeFileAtomic(path string, b []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	name := tmp.Name()
	defer os.Remove(name) // no-op after a successful rename

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, 0o600); err != nil {
		return err
	}
	return os.Rename(name, path)
}
