package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveForSendMintsProvisionalOnce(t *testing.T) {
	r := NewResolver()

	id1, provisional := r.ResolveForSend()
	require.True(t, provisional)
	require.NotEmpty(t, id1)

	// Same ongoing conversation never gets a second provisional id.
	id2, provisional := r.ResolveForSend()
	assert.True(t, provisional)
	assert.Equal(t, id1, id2)
}

func TestResolveForSendReturnsConfirmedID(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Confirm("s1"))

	id, provisional := r.ResolveForSend()
	assert.Equal(t, "s1", id)
	assert.False(t, provisional)
}

func TestConfirmAdoptsWhenNoSessionActive(t *testing.T) {
	r := NewResolver()

	require.NoError(t, r.Confirm("s1"))

	id, state := r.Current()
	assert.Equal(t, "s1", id)
	assert.Equal(t, StateConfirmed, state)
}

func TestConfirmPromotesProvisionalToBackendID(t *testing.T) {
	r := NewResolver()
	local, _ := r.ResolveForSend()

	// The backend independently assigns a canonical id; it wins.
	require.NoError(t, r.Confirm("canonical"))

	id, state := r.Current()
	assert.NotEqual(t, local, id)
	assert.Equal(t, "canonical", id)
	assert.Equal(t, StateConfirmed, state)
}

func TestConfirmIdempotent(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Confirm("s1"))
	require.NoError(t, r.Confirm("s1"))

	id, _ := r.Current()
	assert.Equal(t, "s1", id)
}

func TestConfirmConflictIsErrorAndDoesNotMutate(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Confirm("s1"))

	err := r.Confirm("s2")
	require.Error(t, err)

	var cerr *ConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "s1", cerr.Active)
	assert.Equal(t, "s2", cerr.Returned)

	id, state := r.Current()
	assert.Equal(t, "s1", id)
	assert.Equal(t, StateConfirmed, state)
}

func TestConfirmEmptyIsNoop(t *testing.T) {
	r := NewResolver()
	local, _ := r.ResolveForSend()

	require.NoError(t, r.Confirm(""))

	id, state := r.Current()
	assert.Equal(t, local, id)
	assert.Equal(t, StateProvisional, state)
}

func TestReset(t *testing.T) {
	r := NewResolver()
	require.NoError(t, r.Confirm("s1"))

	r.Reset()

	id, state := r.Current()
	assert.Empty(t, id)
	assert.Equal(t, StateNone, state)

	// A fresh conversation mints a fresh provisional id.
	next, provisional := r.ResolveForSend()
	assert.True(t, provisional)
	assert.NotEqual(t, "s1", next)
}

func TestAdopt(t *testing.T) {
	r := NewResolver()

	r.Adopt("resumed")

	id, state := r.Current()
	assert.Equal(t, "resumed", id)
	assert.Equal(t, StateConfirmed, state)

	// Conflicting confirmation after adoption is still reported.
	assert.Error(t, r.Confirm("other"))
}
