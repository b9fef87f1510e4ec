package common

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestNetworkErr(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewNetworkErr(TransportError, "reading", cause)

	assert.Equal(t, "TRANSPORT_ERROR: reading: connection reset", err.Error())
	assert.Equal(t, cause, err.Cause())

	wrapped := errors.Wrap(err, "remote node")
	assert.True(t, IsNetwork(wrapped, TransportError))
	assert.False(t, IsNetwork(wrapped, Interrupted))
	assert.Equal(t, TransportError, NetworkErrTypeOf(wrapped))
	assert.Equal(t, UnspecifiedError, NetworkErrTypeOf(cause))
	assert.False(t, IsNetwork(nil, TransportError))
}

func TestStoreErr(t *testing.T) {
	err := NewStoreErr("Table", KeyNotFound, "poker")
	assert.Equal(t, "Table, poker, Not Found", err.Error())

	wrapped := errors.Wrap(err, "loading")
	assert.True(t, IsStore(wrapped, KeyNotFound))
	assert.False(t, IsStore(wrapped, Closed))

	corrupt := WrapStoreErr("Table", Corrupt, "poker", errors.New("EOF"))
	assert.Equal(t, "Table, poker, Corrupt: EOF", corrupt.Error())
	assert.True(t, IsStore(corrupt, Corrupt))
}
