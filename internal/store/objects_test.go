package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/arclot/internal/objstore"
	"github.com/roach88/arclot/internal/objstore/objstoretest"
	"github.com/roach88/arclot/internal/uri"
)

func TestObjects_Conformance(t *testing.T) {
	objstoretest.Run(t, func(t *testing.T) objstore.Store {
		return createTestStore(t).Objects()
	})
}

func TestObjects_ListTreatsUnderscoreLiterally(t *testing.T) {
	ctx := context.Background()
	objs := createTestStore(t).Objects()

	require.NoError(t, objs.Put(ctx, uri.Ref{Store: "s", Key: "a_b/x"}, nil))
	require.NoError(t, objs.Put(ctx, uri.Ref{Store: "s", Key: "aXb/x"}, nil))

	refs, err := objs.List(ctx, uri.Ref{Store: "s", Key: "a_b/"})
	require.NoError(t, err)
	assert.Equal(t, []uri.Ref{{Store: "s", Key: "a_b/x"}}, refs)
}

func TestObjects_SurviveReopen(t *testing.T) {
	ctx := context.Background()
	path := t.TempDir() + "/state.db"
	ref := uri.Ref{Store: "s", Key: "arcs/lot=1/running.arc"}

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Objects().Create(ctx, ref, nil))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	ok, err := s.Objects().Exists(ctx, ref)
	require.NoError(t, err)
	assert.True(t, ok)
}
