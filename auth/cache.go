package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/AzureAD/microsoft-authentication-library-for-go/apps/cache"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

var ErrNoIDToken = errors.New("no id token in cache")

// FileCache persists the identity client's serialized cache in a file. The
// file is only readable by its owner.
type FileCache struct {
	Path string
	FS   afero.Fs

	mu sync.Mutex
}

var _ cache.ExportReplace = (*FileCache)(nil)

func (c *FileCache) fs() afero.Fs {
	if c.FS == nil {
		return afero.NewOsFs()
	}
	return c.FS
}

func (c *FileCache) Replace(_ context.Context, u cache.Unmarshaler, _ cache.ReplaceHints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := afero.ReadFile(c.fs(), c.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read token cache: %w", err)
	}
	if len(data) == 0 {
		return nil
	}
	return u.Unmarshal(data)
}

func (c *FileCache) Export(_ context.Context, m cache.Marshaler, _ cache.ExportHints) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := m.Marshal()
	if err != nil {
		return fmt.Errorf("serialize token cache: %w", err)
	}
	return writeFileAtomic(c.fs(), c.Path, data)
}

func writeFileAtomic(fsys afero.Fs, path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	tmp, err := afero.TempFile(fsys, dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = fsys.Remove(name)
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = fsys.Remove(name)
		return fmt.Errorf("write token cache: %w", err)
	}
	if err := fsys.Chmod(name, 0o600); err != nil {
		_ = fsys.Remove(name)
		return fmt.Errorf("chmod token cache: %w", err)
	}
	if err := fsys.Rename(name, path); err != nil {
		_ = fsys.Remove(name)
		return fmt.Errorf("replace token cache: %w", err)
	}
	return nil
}

// IDTokenFromCache returns the secret of the first id token stored in the
// cache file at path.
func IDTokenFromCache(fsys afero.Fs, path string) (string, error) {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return "", fmt.Errorf("read token cache: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("token cache %s is not valid JSON", path)
	}

	var secret string
	gjson.GetBytes(data, "IdToken").ForEach(func(_, entry gjson.Result) bool {
		secret = entry.Get("secret").String()
		return false
	})
	if secret == "" {
		return "", ErrNoIDToken
	}
	return secret, nil
}
