package entwineerr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetriableOnlyFetch(t *testing.T) {
	assert.True(t, New(FetchError, "a.las", errors.New("timeout")).Retriable())
	assert.False(t, New(DecodeError, "a.las", errors.New("bad header")).Retriable())
}

func TestFatalKinds(t *testing.T) {
	assert.True(t, New(StorageError, "", errors.New("disk full")).Fatal())
	assert.True(t, New(MergeError, "", errors.New("mismatch")).Fatal())
	assert.True(t, New(ConfigError, "", errors.New("bad field")).Fatal())
	assert.False(t, New(BoundsError, "", errors.New("oob")).Fatal())
	assert.False(t, New(FetchError, "", errors.New("timeout")).Fatal())
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(DecodeError, "file.las", cause)
	assert.True(t, errors.Is(err, cause))
}
