// Package reasonstore implements the per-package reason database (the
// "yumdb"): a strict four-key namespace — from_repo, installed_by,
// reason, releasever — stored as one small file per key per package,
// behind an afero filesystem abstraction that is itself testable with
// an in-memory backend.
package reasonstore

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/solvable-go/dnfcore/pkg/dnferr"
)

// Key is one of the strict namespace of recognised reason-store keys.
type Key string

const (
	FromRepo    Key = "from_repo"
	InstalledBy Key = "installed_by"
	Reason      Key = "reason"
	Releasever  Key = "releasever"
)

var validKeys = map[Key]bool{FromRepo: true, InstalledBy: true, Reason: true, Releasever: true}

// Store is the reason-store capability set: get/set/remove/remove_all
// string values keyed by (package, key).
type Store struct {
	fs   afero.Fs
	root string
}

// New returns a Store rooted at root on fs. Pass afero.NewOsFs() for a
// real on-disk store, or afero.NewMemMapFs() for tests.
func New(fs afero.Fs, root string) *Store {
	return &Store{fs: fs, root: root}
}

func (s *Store) path(pkg string, key Key) string {
	return filepath.Join(s.root, pkg, string(key))
}

// Get reads the value stored at (pkg, key); ok is false if unset.
func (s *Store) Get(pkg string, key Key) (value string, ok bool, err error) {
	if !validKeys[key] {
		return "", false, dnferr.New(dnferr.InternalError, "unrecognised reason-store key %q", key)
	}

	data, err := afero.ReadFile(s.fs, s.path(pkg, key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, dnferr.Wrap(dnferr.FileInvalid, err, "reading reason store key %q for %q", key, pkg)
	}

	return strings.TrimRight(string(data), "\n"), true, nil
}

// Set writes value at (pkg, key), creating the package's directory if
// needed.
func (s *Store) Set(pkg string, key Key, value string) error {
	if !validKeys[key] {
		return dnferr.New(dnferr.InternalError, "unrecognised reason-store key %q", key)
	}

	dir := filepath.Join(s.root, pkg)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return dnferr.Wrap(dnferr.FileInvalid, err, "creating reason store dir for %q", pkg)
	}

	if err := afero.WriteFile(s.fs, s.path(pkg, key), []byte(value+"\n"), 0o644); err != nil {
		return dnferr.Wrap(dnferr.FileInvalid, err, "writing reason store key %q for %q", key, pkg)
	}

	return nil
}

// Remove deletes the value at (pkg, key), if present.
func (s *Store) Remove(pkg string, key Key) error {
	if !validKeys[key] {
		return dnferr.New(dnferr.InternalError, "unrecognised reason-store key %q", key)
	}

	if err := s.fs.Remove(s.path(pkg, key)); err != nil && !os.IsNotExist(err) {
		return dnferr.Wrap(dnferr.FileInvalid, err, "removing reason store key %q for %q", key, pkg)
	}

	return nil
}

// RemoveAll deletes every key stored for pkg.
func (s *Store) RemoveAll(pkg string) error {
	if err := s.fs.RemoveAll(filepath.Join(s.root, pkg)); err != nil {
		return dnferr.Wrap(dnferr.FileInvalid, err, "removing reason store entry for %q", pkg)
	}
	return nil
}

