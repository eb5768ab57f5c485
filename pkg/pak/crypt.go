package pak

import (
	"crypto/aes"
	"fmt"
)

// KeySize is the required key length: the index cipher is AES-256.
const KeySize = 32

// DecryptIndex decrypts an index ciphertext region with AES-256-ECB. Index
// regions are always written block-aligned, so a misaligned length means the
// ciphertext region itself is wrong and the result could not be trusted.
func DecryptIndex(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d",
			ErrKeyMismatch, len(ciphertext), aes.BlockSize)
	}
	return ecb(ciphertext, key, false)
}

// Encrypt is the inverse of DecryptIndex; the plaintext must be
// block-aligned.
func Encrypt(plaintext, key []byte) ([]byte, error) {
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("plaintext length %d is not a multiple of %d", len(plaintext), aes.BlockSize)
	}
	return ecb(plaintext, key, true)
}

// decryptPadded decrypts a per-entry payload whose stored length is not
// necessarily block-aligned: the ciphertext is zero-padded to the block
// boundary for the cipher and the result truncated back to the stored
// length.
func decryptPadded(data, key []byte) ([]byte, error) {
	padded := data
	if rem := len(data) % aes.BlockSize; rem != 0 {
		padded = make([]byte, len(data)+aes.BlockSize-rem)
		copy(padded, data)
	}
	plain, err := ecb(padded, key, false)
	if err != nil {
		return nil, err
	}
	return plain[:len(data)], nil
}

// ecb runs AES over each 16-byte block independently. Electronic-codebook
// mode is deliberately absent from crypto libraries, so the block loop is
// spelled out here; it is what this archive format uses.
func ecb(src, key []byte, encrypt bool) ([]byte, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key is %d bytes, want %d", ErrKeyMismatch, len(key), KeySize)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}

	dst := make([]byte, len(src))
	for i := 0; i < len(src); i += aes.BlockSize {
		if encrypt {
			block.Encrypt(dst[i:i+aes.BlockSize], src[i:i+aes.BlockSize])
		} else {
			block.Decrypt(dst[i:i+aes.BlockSize], src[i:i+aes.BlockSize])
		}
	}
	return dst, nil
}
