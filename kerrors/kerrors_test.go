package kerrors_test

import (
	"testing"

	"github.com/forbearing/admincore/kerrors"
	"github.com/stretchr/testify/assert"
)

func TestWrapAndKindOf(t *testing.T) {
	base := kerrors.New(kerrors.NotFound, "book 1 missing")
	assert.True(t, kerrors.IsNotFound(base))
	assert.False(t, kerrors.IsConflict(base))

	wrapped := kerrors.Wrap(base, kerrors.Backend, "list failed")
	// Wrap re-tags the kind; the outermost kind wins.
	assert.True(t, kerrors.IsBackend(wrapped))
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, kerrors.Wrap(nil, kerrors.NotFound, "noop"))
}

func TestKindOfUntagged(t *testing.T) {
	assert.Equal(t, kerrors.Kind(""), kerrors.KindOf(nil))
}
