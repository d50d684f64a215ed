package cryptox

import (
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
)

// LoadOrGenerateKeyFile returns the raw key material stored at path,
// generating and persisting a fresh random key of size bytes if the file does
// not exist yet. Used for the session-cookie signing key, which must survive
// restarts so existing sessions stay valid.
func LoadOrGenerateKeyFile(path string, size int) ([]byte, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		key := make([]byte, size)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, key, 0600); err != nil {
			return nil, err
		}
		return key, nil
	}

	key, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(key) == 0 {
		return nil, fmt.Errorf("key file %s is empty", path)
	}
	return key, nil
}
