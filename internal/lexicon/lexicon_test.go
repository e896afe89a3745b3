package lexicon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasic(t *testing.T) {
	t.Parallel()

	lex := Basic()

	vp, ok := lex.Lookup("NODE_SELECTED")
	require.True(t, ok)
	assert.Same(t, NodeSelected, vp)
	assert.True(t, lex.Contains(ColumnGravity))
	assert.Equal(t, false, NodeSelected.Default)

	_, ok = lex.Lookup("NODE_SHAPE")
	assert.False(t, ok)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	t.Run("RejectsDuplicates", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry()
		vp := &VisualProperty{ID: "X", Default: 1}

		require.NoError(t, r.Register(vp))
		assert.Error(t, r.Register(&VisualProperty{ID: "X"}))
		assert.Error(t, r.Register(&VisualProperty{}))
	})

	t.Run("ContainsByIdentity", func(t *testing.T) {
		t.Parallel()
		r := NewRegistry(&VisualProperty{ID: "X"})

		assert.False(t, r.Contains(&VisualProperty{ID: "X"}))
		assert.False(t, r.Contains(nil))
	})

	t.Run("PropertiesFor", func(t *testing.T) {
		t.Parallel()
		cols := PropertiesFor(Basic(), TargetColumn)

		assert.Equal(t, []*VisualProperty{ColumnGravity, ColumnVisible, ColumnFormat, ColumnWidth}, cols)
	})
}

func TestVisualProperty_Accepts(t *testing.T) {
	t.Parallel()

	assert.True(t, NodeSize.Accepts(12.0))
	assert.False(t, NodeSize.Accepts(12))
	assert.True(t, NodeSize.Accepts(nil))
	assert.True(t, (&VisualProperty{ID: "ANY"}).Accepts([]string{"x"}))
}
