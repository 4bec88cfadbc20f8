package errkind

import (
	"testing"

	stderrors "errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesTheKindAttached(t *testing.T) {
	err := New(TransportError, "link dropped")
	assert.True(t, Is(err, TransportError))
	assert.False(t, Is(err, InvalidData))
}

func TestWrapPreservesUnderlyingErrorInChain(t *testing.T) {
	root := stderrors.New("eof")
	err := Wrap(TransportError, root, "reading frame")
	require.Error(t, err)
	assert.True(t, errors.Is(err, root))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(InvalidData, nil, "no-op"))
	assert.NoError(t, Wrapf(InvalidData, nil, "no-op %d", 1))
}

func TestKindOfReturnsFalseForUnkindedError(t *testing.T) {
	_, ok := KindOf(stderrors.New("plain"))
	assert.False(t, ok)
}

func TestKindOfReturnsAttachedKind(t *testing.T) {
	err := Errorf(SafetyViolation, "over threshold by %d", 5)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, SafetyViolation, kind)
}

func TestIsWalksWrappedChain(t *testing.T) {
	inner := New(InvalidConfiguration, "bad range")
	outer := errors.Wrap(inner, "loading creature config")
	assert.True(t, Is(outer, InvalidConfiguration))
}

func TestKindStringer(t *testing.T) {
	assert.Equal(t, "InvalidConfiguration", InvalidConfiguration.String())
	assert.Equal(t, "InvalidData", InvalidData.String())
	assert.Equal(t, "InternalError", InternalError.String())
	assert.Equal(t, "TransportError", TransportError.String())
	assert.Equal(t, "SafetyViolation", SafetyViolation.String())
}
