package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"io"

	"github.com/backy/backy/internal/errors"
)

const (
	// KeySize is the size of the AES-256 key.
	KeySize = 32
	// NonceSize is the size of the GCM nonce (96 bit).
	NonceSize = 12
	// SaltSize is the size of the random salt used for key derivation.
	SaltSize = 16

	// Extension is the number of bytes a plaintext is enlarged by encrypting it.
	Extension = 16
)

var (
	// ErrUnauthenticated is returned when ciphertext verification has failed.
	ErrUnauthenticated = errors.New("ciphertext verification failed: wrong password or corrupted data")
)

// randReader is the source of salts and nonces. Overridden by tests.
var randReader io.Reader = rand.Reader

// Key is an AES-256-GCM key derived from a password.
type Key struct {
	aead cipher.AEAD
}

// statically ensure that *Key implements crypto/cipher.AEAD
var _ cipher.AEAD = &Key{}

// NewKey returns a Key for the 32 byte key material k.
func NewKey(k []byte) (*Key, error) {
	if len(k) != KeySize {
		return nil, errors.Errorf("invalid key size %d, want %d", len(k), KeySize)
	}

	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, errors.Wrap(err, "aes.NewCipher")
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.Wrap(err, "cipher.NewGCM")
	}

	return &Key{aead: aead}, nil
}

// NewRandomKey returns a Key with random key material.
func NewRandomKey() (*Key, error) {
	k, err := randomBytes(KeySize)
	if err != nil {
		return nil, err
	}
	return NewKey(k)
}

func randomBytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(randReader, buf); err != nil {
		return nil, errors.E(errors.KindCrypto, "read random bytes", "", err)
	}
	return buf, nil
}

// NewRandomNonce returns a new random nonce. Nonces are never supplied by
// callers, so a (key, nonce) pair is not reused.
func NewRandomNonce() ([]byte, error) {
	return randomBytes(NonceSize)
}

// NonceSize returns the size of the nonce that must be passed to Seal
// and Open.
func (k *Key) NonceSize() int {
	return NonceSize
}

// Overhead returns the maximum difference between the lengths of a
// plaintext and its ciphertext.
func (k *Key) Overhead() int {
	return k.aead.Overhead()
}

// Seal encrypts and authenticates plaintext and appends the result to dst,
// returning the updated slice. The nonce must be NonceSize() bytes long and
// unique for all time, for a given key. Additional data is not supported.
func (k *Key) Seal(dst, nonce, plaintext, additionalData []byte) []byte {
	if len(additionalData) > 0 {
		panic("additional data is not supported")
	}

	if len(nonce) != NonceSize {
		panic("incorrect nonce length")
	}

	return k.aead.Seal(dst, nonce, plaintext, nil)
}

// Open decrypts and authenticates ciphertext and, if successful, appends the
// resulting plaintext to dst, returning the updated slice. On failure
// ErrUnauthenticated is returned and no plaintext is released. Additional
// data is not supported.
func (k *Key) Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error) {
	if len(additionalData) > 0 {
		return nil, errors.E(errors.KindCrypto, "decrypt", "",
			errors.New("additional data is not supported"))
	}

	if len(nonce) != NonceSize {
		return nil, errors.E(errors.KindCrypto, "decrypt", "",
			errors.Errorf("incorrect nonce length %d, want %d", len(nonce), NonceSize))
	}

	// check for plausible length
	if len(ciphertext) < k.Overhead() {
		return nil, errors.E(errors.KindCrypto, "decrypt", "",
			errors.Errorf("trying to decrypt invalid data: ciphertext too short"))
	}

	plaintext, err := k.aead.Open(dst, nonce, ciphertext, nil)
	if err != nil {
		return nil, errors.E(errors.KindCrypto, "decrypt", "", ErrUnauthenticated)
	}

	return plaintext, nil
}
