package objstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/roach88/arclot/internal/uri"
)

// Dir is a Store on the local filesystem. Each store is a directory under
// Root and each key a file path below it.
//
// Writes go through a temp file and rename. Create and Move use hard links,
// which fail when the target exists, so both are no-clobber even across
// processes sharing the directory. A Move that finds its source already
// removed after linking unlinks the destination again.
type Dir struct {
	Root string

	afterLink func()
}

// NewDir returns a filesystem store rooted at root.
func NewDir(root string) *Dir {
	return &Dir{Root: root}
}

var _ Store = (*Dir)(nil)

func (d *Dir) path(ref uri.Ref) string {
	return filepath.Join(d.Root, ref.Store, filepath.FromSlash(ref.Key))
}

// Exists implements Store.
func (d *Dir) Exists(_ context.Context, ref uri.Ref) (bool, error) {
	info, err := os.Stat(d.path(ref))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat %s: %w", ref, err)
	}
	return info.Mode().IsRegular(), nil
}

// List implements Store.
func (d *Dir) List(_ context.Context, prefix uri.Ref) ([]uri.Ref, error) {
	storeDir := filepath.Join(d.Root, prefix.Store)

	// Start the walk at the deepest directory the prefix names.
	start := storeDir
	if i := strings.LastIndex(prefix.Key, "/"); i >= 0 {
		start = filepath.Join(storeDir, filepath.FromSlash(prefix.Key[:i]))
	}

	var refs []uri.Ref
	err := filepath.WalkDir(start, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			return nil
		}
		rel, err := filepath.Rel(storeDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix.Key) {
			refs = append(refs, uri.Ref{Store: prefix.Store, Key: key})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Key < refs[j].Key })
	return refs, nil
}

// Get implements Store.
func (d *Dir) Get(_ context.Context, ref uri.Ref) ([]byte, error) {
	data, err := os.ReadFile(d.path(ref))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref, err)
	}
	return data, nil
}

// Put implements Store.
func (d *Dir) Put(_ context.Context, ref uri.Ref, data []byte) error {
	if err := validKey(ref); err != nil {
		return err
	}
	target := d.path(ref)
	tmp, err := writeTemp(target, data)
	if err != nil {
		return fmt.Errorf("put %s: %w", ref, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("put %s: %w", ref, err)
	}
	return fsyncDir(filepath.Dir(target))
}

// Create implements Store.
func (d *Dir) Create(_ context.Context, ref uri.Ref, data []byte) error {
	if err := validKey(ref); err != nil {
		return err
	}
	target := d.path(ref)
	tmp, err := writeTemp(target, data)
	if err != nil {
		return fmt.Errorf("create %s: %w", ref, err)
	}
	defer os.Remove(tmp)

	if err := os.Link(tmp, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrExists
		}
		return fmt.Errorf("create %s: %w", ref, err)
	}
	return fsyncDir(filepath.Dir(target))
}

// Move implements Store.
func (d *Dir) Move(_ context.Context, src, dst uri.Ref) error {
	if err := validKey(dst); err != nil {
		return err
	}
	from, to := d.path(src), d.path(dst)
	if _, err := os.Stat(from); errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("move %s: %w", src, err)
	}
	if err := os.Link(from, to); err != nil {
		switch {
		case errors.Is(err, fs.ErrExist):
			return ErrExists
		case errors.Is(err, fs.ErrNotExist):
			return ErrNotFound
		}
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	if d.afterLink != nil {
		d.afterLink()
	}
	if err := os.Remove(from); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// Another mover took the source first; undo our link.
			if err := os.Remove(to); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("move %s to %s: undo link: %w", src, dst, err)
			}
			return ErrNotFound
		}
		return fmt.Errorf("move %s to %s: remove source: %w", src, dst, err)
	}
	if err := fsyncDir(filepath.Dir(to)); err != nil {
		return err
	}
	return fsyncDir(filepath.Dir(from))
}

// Delete implements Store.
func (d *Dir) Delete(_ context.Context, ref uri.Ref) error {
	err := os.Remove(d.path(ref))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// writeTemp writes data to a synced hidden temp file next to target and
// returns its name.
func writeTemp(target string, data []byte) (string, error) {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	tmp, err := os.CreateTemp(dir, "."+path.Base(filepath.ToSlash(target))+".tmp.*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(name)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		return "", err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	committed = true
	return name, nil
}

func fsyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
