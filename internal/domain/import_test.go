package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to ImportStatus
		want     bool
	}{
		{ImportStatusCreated, ImportStatusAssign, true},
		{ImportStatusCreated, ImportStatusProcess, false},
		{ImportStatusAssign, ImportStatusProcess, true},
		{ImportStatusProcess, ImportStatusProcessing, true},
		{ImportStatusProcess, ImportStatusAssign, true},
		{ImportStatusProcessing, ImportStatusProcessed, true},
		{ImportStatusProcessing, ImportStatusError, true},
		{ImportStatusProcessing, ImportStatusDeleted, false},
		{ImportStatusProcessed, ImportStatusProcess, false},
		{ImportStatusError, ImportStatusDeleted, true},
		{ImportStatusDeleted, ImportStatusAssign, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransition(tt.to))
			err := ValidateTransition(tt.from, tt.to)
			if tt.want {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidTransition)
			}
		})
	}
}

func TestImportStatusIsTerminal(t *testing.T) {
	assert.True(t, ImportStatusProcessed.IsTerminal())
	assert.True(t, ImportStatusError.IsTerminal())
	assert.True(t, ImportStatusDeleted.IsTerminal())
	assert.False(t, ImportStatusProcessing.IsTerminal())
	assert.False(t, ImportStatusAssign.IsTerminal())
}

func TestStringArrayRoundTrip(t *testing.T) {
	v, err := StringArray(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	var a StringArray
	require.NoError(t, a.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, StringArray{"a", "b"}, a)

	require.NoError(t, a.Scan(nil))
	assert.Empty(t, a)
	assert.Error(t, a.Scan(42))
}
