package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	encoded, err := Encode(nil)
	require.NoError(t, err)
	assert.Equal(t, "{}", encoded)

	decoded, err := Decode("")
	require.NoError(t, err)
	assert.Empty(t, decoded)

	decoded, err = Decode(`{"path":"a.txt","start":3}`)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", GetString(decoded, PathKey))
	assert.Equal(t, "", GetString(decoded, StartKey))

	_, err = Decode("{")
	assert.Error(t, err)
}
