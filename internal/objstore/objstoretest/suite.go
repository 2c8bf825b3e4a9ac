// Package objstoretest is a conformance suite for objstore.Store backends.
package objstoretest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/uri"
)

// Run exercises a backend. newStore must return an empty store for every
// call.
func Run(t *testing.T, newStore func(t *testing.T) objstore.Store) {
	t.Helper()
	ctx := context.Background()
	ref := func(key string) uri.Ref { return uri.Ref{Store: "bucket", Key: key} }

	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(ctx, ref("a/b.json"))
		assert.True(t, errors.Is(err, objstore.ErrNotFound), "got %v", err)

		ok, err := s.Exists(ctx, ref("a/b.json"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("put get overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, ref("a/b.json"), []byte("one")))
		require.NoError(t, s.Put(ctx, ref("a/b.json"), []byte("two")))

		data, err := s.Get(ctx, ref("a/b.json"))
		require.NoError(t, err)
		assert.Equal(t, []byte("two"), data)

		ok, err := s.Exists(ctx, ref("a/b.json"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("empty object", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, ref("l/running.arc"), nil))

		data, err := s.Get(ctx, ref("l/running.arc"))
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("create if absent", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Create(ctx, ref("x"), []byte("first")))

		err := s.Create(ctx, ref("x"), []byte("second"))
		assert.True(t, errors.Is(err, objstore.ErrExists), "got %v", err)

		data, err := s.Get(ctx, ref("x"))
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), data)
	})

	t.Run("create race has one winner", func(t *testing.T) {
		s := newStore(t)
		const racers = 8
		var wg sync.WaitGroup
		errs := make([]error, racers)
		wg.Add(racers)
		for i := 0; i < racers; i++ {
			go func(i int) {
				defer wg.Done()
				errs[i] = s.Create(ctx, ref("lot/running.arc"), nil)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			if err == nil {
				wins++
				continue
			}
			assert.True(t, errors.Is(err, objstore.ErrExists), "got %v", err)
		}
		assert.Equal(t, 1, wins)
	})

	t.Run("move", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, ref("l/running.arc"), []byte("m")))
		require.NoError(t, s.Move(ctx, ref("l/running.arc"), ref("l/complete.arc")))

		ok, err := s.Exists(ctx, ref("l/running.arc"))
		require.NoError(t, err)
		assert.False(t, ok)

		data, err := s.Get(ctx, ref("l/complete.arc"))
		require.NoError(t, err)
		assert.Equal(t, []byte("m"), data)
	})

	t.Run("move missing source", func(t *testing.T) {
		s := newStore(t)
		err := s.Move(ctx, ref("l/running.arc"), ref("l/complete.arc"))
		assert.True(t, errors.Is(err, objstore.ErrNotFound), "got %v", err)

		ok, err := s.Exists(ctx, ref("l/complete.arc"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("move does not clobber", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, ref("l/running.arc"), []byte("src")))
		require.NoError(t, s.Put(ctx, ref("l/complete.arc"), []byte("dst")))

		err := s.Move(ctx, ref("l/running.arc"), ref("l/complete.arc"))
		assert.True(t, errors.Is(err, objstore.ErrExists), "got %v", err)

		data, err := s.Get(ctx, ref("l/complete.arc"))
		require.NoError(t, err)
		assert.Equal(t, []byte("dst"), data)
		ok, err := s.Exists(ctx, ref("l/running.arc"))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("list by prefix", func(t *testing.T) {
		s := newStore(t)
		for _, k := range []string{
			"arcs/name=p/arc=a/lot=2/running.arc",
			"arcs/name=p/arc=a/lot=1/complete.arc",
			"arcs/name=p/arc=ab/lot=1/running.arc",
			"datasets/name=d/lot=1/complete/manifest.json",
		} {
			require.NoError(t, s.Put(ctx, ref(k), nil))
		}
		require.NoError(t, s.Put(ctx, uri.Ref{Store: "other", Key: "arcs/name=p/arc=a/lot=1/running.arc"}, nil))

		refs, err := s.List(ctx, ref("arcs/name=p/arc=a/"))
		require.NoError(t, err)
		assert.Equal(t, []uri.Ref{
			ref("arcs/name=p/arc=a/lot=1/complete.arc"),
			ref("arcs/name=p/arc=a/lot=2/running.arc"),
		}, refs)

		refs, err = s.List(ctx, ref("arcs/name=p/arc=a"))
		require.NoError(t, err)
		assert.Len(t, refs, 3)

		refs, err = s.List(ctx, ref("nothing/here/"))
		require.NoError(t, err)
		assert.Empty(t, refs)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, ref("k"), []byte("v")))
		require.NoError(t, s.Delete(ctx, ref("k")))
		require.NoError(t, s.Delete(ctx, ref("k")))

		ok, err := s.Exists(ctx, ref("k"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects prefix keys", func(t *testing.T) {
		s := newStore(t)
		assert.Error(t, s.Put(ctx, ref("dir/"), nil))
		assert.Error(t, s.Create(ctx, uri.Ref{Key: "k"}, nil))
	})
}

// RunMoveRace checks the losing side of two moves of one source. interleave
// installs a function the store calls after writing the destination and
// before removing the source; the suite moves the source away from there.
func RunMoveRace(t *testing.T, newStore func(t *testing.T) objstore.Store, interleave func(s objstore.Store, f func())) {
	t.Helper()
	ctx := context.Background()
	ref := func(key string) uri.Ref { return uri.Ref{Store: "bucket", Key: key} }

	t.Run("move race has one winner", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Put(ctx, ref("l/running.arc"), []byte("m")))

		fired := false
		var winner error
		interleave(s, func() {
			if fired {
				return
			}
			fired = true
			winner = s.Move(ctx, ref("l/running.arc"), ref("l/partial.arc"))
		})

		err := s.Move(ctx, ref("l/running.arc"), ref("l/complete.arc"))
		require.True(t, fired)
		require.NoError(t, winner)
		assert.True(t, errors.Is(err, objstore.ErrNotFound), "got %v", err)

		refs, err := s.List(ctx, ref("l/"))
		require.NoError(t, err)
		assert.Equal(t, []uri.Ref{ref("l/partial.arc")}, refs)
	})
}
