package secrets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func TestChannelSecrets(t *testing.T) {
	keyring.MockInit()

	_, err := Get("telegram", "token")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, Set("Telegram", "Token", "bot:123"))
	v, err := Get("telegram", "token")
	require.NoError(t, err)
	assert.Equal(t, "bot:123", v)

	require.NoError(t, Delete("telegram", "token"))
	assert.ErrorIs(t, Delete("telegram", "token"), ErrNotFound)

	assert.Error(t, Set("telegram", "token", "  "))
	assert.Error(t, Set("", "token", "x"))
}
