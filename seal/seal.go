// Package seal wraps the symmetric cipher used for end-to-end-encrypted
// publishes. Content is encrypted with AES-256-GCM; the key travels only in
// the share link's URL fragment and is never sent to the remote store.
//
// A run either mints a fresh key or reuses the one parsed out of an earlier
// share link, so repeated publishes of the same document keep their
// decryption key stable.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// KeyLen is the symmetric key size in bytes (AES-256).
const KeyLen = 32

// ErrBadKey is returned when a key is not KeyLen bytes of hex.
var ErrBadKey = errors.New("seal: key must be 64 hex characters")

// Sealed is the result of one Encrypt call.
type Sealed struct {
	Ciphertext []byte
	IV         []byte
	// Key is the hex-encoded key that encrypted Ciphertext — freshly minted
	// when Encrypt was called with an empty key, otherwise the caller's key
	// verbatim.
	Key string
}

// NewKey mints a fresh random key, hex-encoded.
func NewKey() string {
	buf := make([]byte, KeyLen)
	if _, err := rand.Read(buf); err != nil {
		panic("seal: crypto/rand failed: " + err.Error())
	}
	return hex.EncodeToString(buf)
}

// Encrypt seals plaintext with AES-256-GCM. An empty key mints a fresh one;
// a non-empty key is reused verbatim so the share link stays decryptable by
// the previously distributed fragment.
func Encrypt(plaintext []byte, key string) (Sealed, error) {
	if key == "" {
		key = NewKey()
	}
	aead, err := newAEAD(key)
	if err != nil {
		return Sealed{}, err
	}

	iv := make([]byte, aead.NonceSize())
	if _, err := rand.Read(iv); err != nil {
		return Sealed{}, fmt.Errorf("seal: nonce: %w", err)
	}

	return Sealed{
		Ciphertext: aead.Seal(nil, iv, plaintext, nil),
		IV:         iv,
		Key:        key,
	}, nil
}

// Decrypt opens ciphertext produced by Encrypt.
func Decrypt(ciphertext, iv []byte, key string) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("seal: open: %w", err)
	}
	return plaintext, nil
}

func newAEAD(key string) (cipher.AEAD, error) {
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != KeyLen {
		return nil, ErrBadKey
	}
	block, err := aes.NewCipher(raw)
	if err != nil {
		return nil, fmt.Errorf("seal: cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
