package dedup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIsOrderIndependent(t *testing.T) {
	a := Hash(map[string]string{"a": "1", "b": "2"})
	b := Hash(map[string]string{"b": "2", "a": "1"})
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestLocationHash(t *testing.T) {
	h := LocationHash("Pergamonmuseum", "Pergamon Museum")
	assert.Equal(t, h, LocationHash("Pergamonmuseum", "Pergamon Museum"))
	assert.NotEqual(t, h, LocationHash("Pergamonmuseum", ""))
	assert.NotEqual(t, LocationHash("a", "b"), LocationHash("b", "a"))
}

func TestEventHash(t *testing.T) {
	assert.Equal(t, EventHash("42"), EventHash("42"))
	assert.NotEqual(t, EventHash("42"), EventHash("43"))
	assert.NotEqual(t, EventHash("42"), LocationHash("42", ""))
}
