package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// Objects returns the object register view of the store.
func (s *Store) Objects() objstore.Store {
	return objects{db: s.db}
}

// objects implements objstore.Store on the objects table. The table's
// primary key gives create-if-absent and no-clobber move for free.
type objects struct {
	db *sql.DB
}

var _ objstore.Store = objects{}

func checkKey(ref uri.Ref) error {
	if ref.Store == "" || ref.Key == "" || strings.HasSuffix(ref.Key, "/") {
		return &objstore.KeyError{Ref: ref}
	}
	return nil
}

func (o objects) Exists(ctx context.Context, ref uri.Ref) (bool, error) {
	var one int
	err := o.db.QueryRowContext(ctx,
		`SELECT 1 FROM objects WHERE store = ? AND key = ?`, ref.Store, ref.Key,
	).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("exists %s: %w", ref, err)
	}
	return true, nil
}

func (o objects) List(ctx context.Context, prefix uri.Ref) ([]uri.Ref, error) {
	// substr rather than LIKE, which treats '_' in keys as a wildcard.
	rows, err := o.db.QueryContext(ctx, `
		SELECT key FROM objects
		WHERE store = ? AND substr(key, 1, length(?)) = ?
		ORDER BY key COLLATE BINARY ASC
	`, prefix.Store, prefix.Key, prefix.Key)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", prefix, err)
	}
	defer rows.Close()

	var refs []uri.Ref
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		refs = append(refs, uri.Ref{Store: prefix.Store, Key: key})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate keys: %w", err)
	}
	return refs, nil
}

func (o objects) Get(ctx context.Context, ref uri.Ref) ([]byte, error) {
	var data []byte
	err := o.db.QueryRowContext(ctx,
		`SELECT data FROM objects WHERE store = ? AND key = ?`, ref.Store, ref.Key,
	).Scan(&data)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, objstore.ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("get %s: %w", ref, err)
	}
	return data, nil
}

func (o objects) Put(ctx context.Context, ref uri.Ref, data []byte) error {
	if err := checkKey(ref); err != nil {
		return err
	}
	_, err := o.db.ExecContext(ctx, `
		INSERT INTO objects (store, key, data) VALUES (?, ?, ?)
		ON CONFLICT(store, key) DO UPDATE SET data = excluded.data
	`, ref.Store, ref.Key, nonNil(data))
	if err != nil {
		return fmt.Errorf("put %s: %w", ref, err)
	}
	return nil
}

// Create uses ON CONFLICT DO NOTHING; zero affected rows means the key was
// already taken.
func (o objects) Create(ctx context.Context, ref uri.Ref, data []byte) error {
	if err := checkKey(ref); err != nil {
		return err
	}
	res, err := o.db.ExecContext(ctx, `
		INSERT INTO objects (store, key, data) VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, ref.Store, ref.Key, nonNil(data))
	if err != nil {
		return fmt.Errorf("create %s: %w", ref, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create %s: %w", ref, err)
	}
	if n == 0 {
		return objstore.ErrExists
	}
	return nil
}

func (o objects) Move(ctx context.Context, src, dst uri.Ref) error {
	if err := checkKey(dst); err != nil {
		return err
	}
	tx, err := o.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("move %s: begin: %w", src, err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM objects WHERE store = ? AND key = ?`, dst.Store, dst.Key,
	).Scan(&one)
	switch {
	case err == nil:
		return objstore.ErrExists
	case !errors.Is(err, sql.ErrNoRows):
		return fmt.Errorf("move %s: check destination: %w", src, err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE objects SET store = ?, key = ?
		WHERE store = ? AND key = ?
	`, dst.Store, dst.Key, src.Store, src.Key)
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("move %s to %s: %w", src, dst, err)
	}
	if n == 0 {
		return objstore.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("move %s to %s: commit: %w", src, dst, err)
	}
	return nil
}

func (o objects) Delete(ctx context.Context, ref uri.Ref) error {
	_, err := o.db.ExecContext(ctx,
		`DELETE FROM objects WHERE store = ? AND key = ?`, ref.Store, ref.Key,
	)
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// nonNil maps nil to an empty blob; data is NOT NULL.
func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}
