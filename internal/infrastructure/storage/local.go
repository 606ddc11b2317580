package storage

import (
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/oksasatya/authshop/internal/application"
)

// LocalStore writes uploads under Dir. References have the form
// "<urlPrefix>/<name>" and are served statically by the router.
type LocalStore struct {
	Dir       string
	URLPrefix string
	now       func() time.Time
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, oops.With("operation", "create upload dir").With("dir", dir).Wrap(err)
	}
	return &LocalStore{Dir: dir, URLPrefix: "uploads", now: time.Now}, nil
}

var _ application.FileStore = (*LocalStore)(nil)

func (s *LocalStore) Save(_ context.Context, u application.Upload) (string, error) {
	name := objectName(u.Filename, s.now())
	f, err := os.OpenFile(filepath.Join(s.Dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", oops.With("operation", "create upload").Wrap(err)
	}
	if _, err := io.Copy(f, u.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", oops.With("operation", "write upload").Wrap(err)
	}
	if err := f.Close(); err != nil {
		return "", oops.With("operation", "close upload").Wrap(err)
	}
	return path.Join(s.URLPrefix, name), nil
}

// Remove deletes a file previously returned by Save. Unknown references are ignored.
func (s *LocalStore) Remove(_ context.Context, ref string) error {
	name := strings.TrimPrefix(ref, s.URLPrefix+"/")
	if name == ref || name == "" || strings.ContainsAny(name, `/\`) {
		return nil
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !os.IsNotExist(err) {
		return oops.With("operation", "remove upload").Wrap(err)
	}
	return nil
}
