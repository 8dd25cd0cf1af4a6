package lang

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ext  string
		want string
	}{
		{".h", "cpp"},
		{".hpp", "cpp"},
		{".HPP", "cpp"},
		{".hxx", "cpp"},
		{".cpp", ""},
		{".py", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ForExtension(tt.ext))
		})
	}
}

func TestLanguagesRegistered(t *testing.T) {
	t.Parallel()

	c, ok := Languages["cpp"]
	require.True(t, ok, "cpp language not registered")
	assert.NotNil(t, c.GetLanguage())
	assert.NotNil(t, c.NewParser())
}

func TestGetOutlineQuery(t *testing.T) {
	t.Parallel()

	c := Languages["cpp"]
	q, err := c.GetOutlineQuery()
	require.NoError(t, err)
	require.NotNil(t, q)

	for i := uint32(0); i < q.CaptureCount(); i++ {
		name := q.CaptureNameForId(i)
		if name == "name" {
			continue
		}
		_, ok := c.Captures[name]
		assert.True(t, ok, "capture %s has no model kind", name)
	}
}

func TestNodePos(t *testing.T) {
	t.Parallel()

	src := []byte("\n  namespace ns {}\n")
	tree, err := Languages["cpp"].NewParser().ParseCtx(context.Background(), nil, src)
	require.NoError(t, err)
	defer tree.Close()

	ns := tree.RootNode().NamedChild(0)
	require.NotNil(t, ns)
	assert.Equal(t, "namespace_definition", ns.Type())
	pos := NodePos("a.h", ns)
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 3, pos.Col)
	assert.Equal(t, "namespace ns {}", NodeText(ns, src))
}
