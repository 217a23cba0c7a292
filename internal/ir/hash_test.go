package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelHashIgnoresOwner(t *testing.T) {
	a, err := ModelHash(*partnerModel().ForOwner("alice"))
	require.NoError(t, err)
	b, err := ModelHash(*partnerModel().ForOwner("bob"))
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestModelHashTracksLayout(t *testing.T) {
	base, err := ModelHash(partnerModel())
	require.NoError(t, err)

	changed := partnerModel()
	changed.Columns[0].Type = TypeText
	other, err := ModelHash(changed)
	require.NoError(t, err)

	assert.NotEqual(t, base, other)
}

func TestHashWithDomainSeparation(t *testing.T) {
	assert.NotEqual(t, hashWithDomain("a", []byte("bc")), hashWithDomain("ab", []byte("c")))
}
