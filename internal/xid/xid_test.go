package xid

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIsPrefixedAndUnique(t *testing.T) {
	a := New("log")
	b := New("log")

	require.True(t, strings.HasPrefix(a, "log-"))
	assert.NotEqual(t, a, b)
	_, err := uuid.Parse(strings.TrimPrefix(a, "log-"))
	assert.NoError(t, err)
}

func TestNewFallsBackWhenRandomFails(t *testing.T) {
	orig := newRandom
	t.Cleanup(func() { newRandom = orig })
	newRandom = func() (uuid.UUID, error) {
		return uuid.Nil, errors.New("entropy unavailable")
	}

	id := New("log")

	require.True(t, strings.HasPrefix(id, "log-"))
	_, err := strconv.ParseInt(strings.TrimPrefix(id, "log-"), 10, 64)
	assert.NoError(t, err)
}
