package crypto

import (
	"github.com/backy/backy/internal/errors"

	"golang.org/x/crypto/argon2"
)

// Params are the Argon2id cost parameters.
type Params struct {
	Time    uint32 // number of passes
	Memory  uint32 // in KiB
	Threads uint8
}

// DefaultParams are the recommended Argon2id parameters (19 MiB, two
// passes, one lane).
var DefaultParams = Params{
	Time:    2,
	Memory:  19 * 1024,
	Threads: 1,
}

// KDFParams are the parameters used by Encrypt and Decrypt. Data encrypted
// with one set of parameters can only be decrypted with the same set.
var KDFParams = DefaultParams

// KDF derives the encryption key from the password using Argon2id with the
// supplied parameters and salt.
func KDF(p Params, salt []byte, password string) (*Key, error) {
	if len(salt) == 0 {
		return nil, errors.E(errors.KindCrypto, "derive key", "", errors.New("argon2 called with empty salt"))
	}

	if p.Time < 1 || p.Threads < 1 || p.Memory < 8*uint32(p.Threads) {
		return nil, errors.E(errors.KindCrypto, "derive key", "",
			errors.Errorf("invalid argon2 parameters t=%d m=%d p=%d", p.Time, p.Memory, p.Threads))
	}

	k := argon2.IDKey([]byte(password), salt, p.Time, p.Memory, p.Threads, KeySize)
	if len(k) != KeySize {
		return nil, errors.E(errors.KindCrypto, "derive key", "",
			errors.Errorf("invalid numbers of bytes expanded from argon2: %d", len(k)))
	}

	return NewKey(k)
}
