package pak

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecryptIndexRoundTrip(t *testing.T) {
	key := testKey()
	plain := bytes.Repeat([]byte("mount-point-data"), 4)

	cipher, err := Encrypt(plain, key)
	require.NoError(t, err)
	require.NotEqual(t, plain, cipher)

	// ECB has no chaining, so equal plaintext blocks must produce equal
	// ciphertext blocks.
	assert.Equal(t, cipher[0:16], cipher[16:32])

	out, err := DecryptIndex(cipher, key)
	require.NoError(t, err)
	assert.Equal(t, plain, out)
}

func TestDecryptIndexRejectsMisalignedCiphertext(t *testing.T) {
	_, err := DecryptIndex(make([]byte, 17), testKey())
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestCipherRejectsBadKeyLength(t *testing.T) {
	_, err := DecryptIndex(make([]byte, 16), []byte("short"))
	assert.ErrorIs(t, err, ErrKeyMismatch)

	_, err = Encrypt(make([]byte, 16), make([]byte, 16))
	assert.ErrorIs(t, err, ErrKeyMismatch)
}

func TestDecryptPaddedTruncatesToStoredLength(t *testing.T) {
	key := testKey()
	plain := bytes.Repeat([]byte{0xAB}, 48)

	cipher, err := Encrypt(plain, key)
	require.NoError(t, err)

	out, err := decryptPadded(cipher, key)
	require.NoError(t, err)
	assert.Equal(t, plain, out)

	// A stored length short of the block boundary still yields exactly that
	// many bytes back.
	short, err := decryptPadded(cipher[:20], key)
	require.NoError(t, err)
	assert.Len(t, short, 20)
	assert.Equal(t, plain[:16], short[:16])
}
