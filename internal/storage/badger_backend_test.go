package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerBackend_Initialize(t *testing.T) {
	t.Parallel()

	t.Run("Success", func(t *testing.T) {
		t.Parallel()
		backend := NewBadgerBackend()
		err := backend.Initialize(filepath.Join(t.TempDir(), "badger"), false)

		assert.NoError(t, err)
		assert.NotNil(t, backend.db)
		assert.True(t, backend.initialized)

		require.NoError(t, backend.Close())
		assert.NoError(t, backend.Close())
	})

	t.Run("InvalidPath", func(t *testing.T) {
		t.Parallel()
		backend := NewBadgerBackend()
		err := backend.Initialize("/nonexistent/path/that/does/not/exist", false)

		assert.Error(t, err)
	})

	t.Run("NotInitialized", func(t *testing.T) {
		t.Parallel()
		backend := NewBadgerBackend()

		assert.ErrorIs(t, backend.SaveStyle(context.Background(), StyleRecord{Title: "x"}), ErrNotInitialized)
		_, err := backend.Associations(context.Background())
		assert.ErrorIs(t, err, ErrNotInitialized)
	})
}

func TestBadgerBackend_Persistence(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "badger")
	assoc := AssociationRecord{NetworkStyle: "S", TableType: "node", ColumnName: "Degree", ColumnStyle: "C1"}

	writer := NewBadgerBackend()
	require.NoError(t, writer.Initialize(dbPath, false))
	require.NoError(t, writer.SaveStyle(ctx, sampleStyle("S")))
	require.NoError(t, writer.SaveAssociation(ctx, assoc))
	require.NoError(t, writer.Close())

	reader := NewBadgerBackend()
	require.NoError(t, reader.Initialize(dbPath, true))
	defer reader.Close()

	styles, err := reader.Styles(ctx)
	require.NoError(t, err)
	require.Len(t, styles, 1)
	assert.Equal(t, "#FF0000", styles[0].Mappings[1].Entries[0].Value)

	assocs, err := reader.Associations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []AssociationRecord{assoc}, assocs)

	assert.ErrorIs(t, reader.SaveAssociation(ctx, assoc), ErrReadOnly)
}
