package crypto

import (
	"github.com/backy/backy/internal/debug"
	"github.com/backy/backy/internal/errors"
)

// Envelope is the result of encrypting data with a password. Salt and Nonce
// are not secret but must be stored next to the Ciphertext, decryption is
// impossible without them.
type Envelope struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte // includes the authentication tag
}

var errEmptyPassword = errors.New("empty password")

// Encrypt derives a key from password and a fresh random salt and seals data
// with a fresh random nonce. Data may be empty.
func Encrypt(data []byte, password string) (*Envelope, error) {
	if password == "" {
		return nil, errors.E(errors.KindCrypto, "encrypt", "", errEmptyPassword)
	}

	salt, err := randomBytes(SaltSize)
	if err != nil {
		return nil, err
	}

	key, err := KDF(KDFParams, salt, password)
	if err != nil {
		return nil, err
	}

	nonce, err := NewRandomNonce()
	if err != nil {
		return nil, err
	}

	ciphertext := key.Seal(make([]byte, 0, len(data)+key.Overhead()), nonce, data, nil)
	debug.Log("encrypted %d bytes", len(data))

	return &Envelope{
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ciphertext,
	}, nil
}

// Decrypt derives the key from password and salt and opens ciphertext. A
// wrong password, salt or nonce and corrupted ciphertext all yield an error
// matching ErrUnauthenticated.
func Decrypt(salt, nonce, ciphertext []byte, password string) ([]byte, error) {
	if password == "" {
		return nil, errors.E(errors.KindCrypto, "decrypt", "", errEmptyPassword)
	}

	key, err := KDF(KDFParams, salt, password)
	if err != nil {
		return nil, err
	}

	plaintext, err := key.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		debug.Log("decrypt failed: %v", err)
		return nil, err
	}

	// a nil slice for empty plaintext would be indistinguishable from
	// "no result" for some callers
	if plaintext == nil {
		plaintext = []byte{}
	}

	return plaintext, nil
}

// Open decrypts the envelope with password.
func (e *Envelope) Open(password string) ([]byte, error) {
	return Decrypt(e.Salt, e.Nonce, e.Ciphertext, password)
}

// MarshalBinary encodes the envelope as salt || nonce || ciphertext.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	if len(e.Salt) != SaltSize || len(e.Nonce) != NonceSize {
		return nil, errors.E(errors.KindSerialization, "encode envelope", "",
			errors.Errorf("invalid salt (%d bytes) or nonce (%d bytes)", len(e.Salt), len(e.Nonce)))
	}

	buf := make([]byte, 0, SaltSize+NonceSize+len(e.Ciphertext))
	buf = append(buf, e.Salt...)
	buf = append(buf, e.Nonce...)
	buf = append(buf, e.Ciphertext...)
	return buf, nil
}

// UnmarshalBinary decodes an envelope produced by MarshalBinary. The fields
// of e do not alias data.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	if len(data) < SaltSize+NonceSize+Extension {
		return errors.E(errors.KindSerialization, "decode envelope", "",
			errors.Errorf("envelope too short: %d bytes", len(data)))
	}

	data = append([]byte(nil), data...)
	e.Salt = data[:SaltSize:SaltSize]
	e.Nonce = data[SaltSize : SaltSize+NonceSize : SaltSize+NonceSize]
	e.Ciphertext = data[SaltSize+NonceSize:]
	return nil
}

// Seal encrypts data with password and returns the encoded envelope.
func Seal(data []byte, password string) ([]byte, error) {
	env, err := Encrypt(data, password)
	if err != nil {
		return nil, err
	}
	return env.MarshalBinary()
}

// Open decodes an envelope produced by Seal and decrypts it with password.
func Open(buf []byte, password string) ([]byte, error) {
	var env Envelope
	if err := env.UnmarshalBinary(buf); err != nil {
		return nil, err
	}
	return env.Open(password)
}
