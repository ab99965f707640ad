package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fastConfig keeps the tests quick; production parameters live in DefaultConfig.
var fastConfig = Argon2Config{
	Memory:      8 * 1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

func TestHashAndVerifySecret(t *testing.T) {
	encoded, err := HashSecretWithConfig("correct horse battery staple", fastConfig)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := VerifySecret("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifySecret_WrongSecret(t *testing.T) {
	encoded, err := HashSecretWithConfig("secret", fastConfig)
	require.NoError(t, err)

	ok, err := VerifySecret("not-the-secret", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashSecret_SaltsDiffer(t *testing.T) {
	first, err := HashSecretWithConfig("secret", fastConfig)
	require.NoError(t, err)
	second, err := HashSecretWithConfig("secret", fastConfig)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifySecret_MalformedHash(t *testing.T) {
	_, err := VerifySecret("secret", "not-an-encoded-hash")
	assert.ErrorIs(t, err, ErrInvalidHash)

	_, err = VerifySecret("secret", "$bcrypt$v=19$m=8192,t=1,p=1$c2FsdA$aGFzaA")
	assert.ErrorIs(t, err, ErrInvalidHash)
}
