package crypto_test

import (
	"bytes"
	"testing"

	"github.com/backy/backy/internal/crypto"
	"github.com/backy/backy/internal/errors"
	rtest "github.com/backy/backy/internal/test"
)

func TestSealOpenKey(t *testing.T) {
	k, err := crypto.NewRandomKey()
	rtest.OK(t, err)

	for _, size := range []int{0, 5, 23, 2<<18 + 23, 1 << 20} {
		data := rtest.Random(42, size)

		nonce, err := crypto.NewRandomNonce()
		rtest.OK(t, err)

		ciphertext := k.Seal(make([]byte, 0, size+crypto.Extension), nonce, data, nil)
		rtest.Assert(t, len(ciphertext) == len(data)+k.Overhead(),
			"ciphertext length does not match: want %d, got %d",
			len(data)+crypto.Extension, len(ciphertext))

		plaintext, err := k.Open(nil, nonce, ciphertext, nil)
		rtest.OK(t, err)
		rtest.Assert(t, bytes.Equal(plaintext, data), "wrong plaintext for size %d", size)
	}
}

func TestKeyAdditionalData(t *testing.T) {
	k, err := crypto.NewRandomKey()
	rtest.OK(t, err)

	nonce, err := crypto.NewRandomNonce()
	rtest.OK(t, err)
	ciphertext := k.Seal(nil, nonce, []byte("data"), nil)

	_, err = k.Open(nil, nonce, ciphertext, []byte("header"))
	rtest.Assert(t, errors.IsKind(err, errors.KindCrypto), "expected crypto error, got %v", err)

	defer func() {
		rtest.Assert(t, recover() != nil, "Seal accepted additional data")
	}()
	k.Seal(nil, nonce, []byte("data"), []byte("header"))
}

func TestNewKeyInvalidSize(t *testing.T) {
	_, err := crypto.NewKey(make([]byte, 16))
	rtest.Assert(t, err != nil, "expected error for 16 byte key")
}

func TestEncryptDecrypt(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	for _, size := range []int{0, 1, 4096, 1<<20 + 7} {
		data := rtest.Random(23, size)

		env, err := crypto.Encrypt(data, "correct horse")
		rtest.OK(t, err)
		rtest.Equals(t, crypto.SaltSize, len(env.Salt))
		rtest.Equals(t, crypto.NonceSize, len(env.Nonce))
		rtest.Equals(t, size+crypto.Extension, len(env.Ciphertext))

		plaintext, err := crypto.Decrypt(env.Salt, env.Nonce, env.Ciphertext, "correct horse")
		rtest.OK(t, err)
		rtest.Assert(t, bytes.Equal(plaintext, data), "wrong plaintext for size %d", size)
	}
}

func TestDecryptEmpty(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	env, err := crypto.Encrypt(nil, "pw")
	rtest.OK(t, err)

	plaintext, err := env.Open("pw")
	rtest.OK(t, err)
	rtest.Assert(t, plaintext != nil, "expected empty, non-nil plaintext")
	rtest.Equals(t, 0, len(plaintext))
}

func TestDecryptWrongPassword(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	env, err := crypto.Encrypt([]byte("secret"), "pw1")
	rtest.OK(t, err)

	_, err = crypto.Decrypt(env.Salt, env.Nonce, env.Ciphertext, "pw2")
	rtest.Assert(t, errors.Is(err, crypto.ErrUnauthenticated), "expected ErrUnauthenticated, got %v", err)
	rtest.Equals(t, errors.KindCrypto, errors.KindOf(err))
}

func TestDecryptTampered(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	data := rtest.Random(5, 1000)
	env, err := crypto.Encrypt(data, "pw")
	rtest.OK(t, err)

	for _, i := range []int{0, 500, len(env.Ciphertext) - 1} {
		ciphertext := append([]byte(nil), env.Ciphertext...)
		ciphertext[i] ^= 0x01

		_, err = crypto.Decrypt(env.Salt, env.Nonce, ciphertext, "pw")
		rtest.Assert(t, errors.Is(err, crypto.ErrUnauthenticated),
			"flipped bit at %d: expected ErrUnauthenticated, got %v", i, err)
	}

	salt := append([]byte(nil), env.Salt...)
	salt[0] ^= 0xff
	_, err = crypto.Decrypt(salt, env.Nonce, env.Ciphertext, "pw")
	rtest.Assert(t, errors.Is(err, crypto.ErrUnauthenticated), "modified salt: got %v", err)

	nonce := append([]byte(nil), env.Nonce...)
	nonce[0] ^= 0xff
	_, err = crypto.Decrypt(env.Salt, nonce, env.Ciphertext, "pw")
	rtest.Assert(t, errors.Is(err, crypto.ErrUnauthenticated), "modified nonce: got %v", err)

	_, err = crypto.Decrypt(env.Salt, env.Nonce, env.Ciphertext[:3], "pw")
	rtest.Assert(t, err != nil, "expected error for truncated ciphertext")
}

func TestDecryptBadNonceLength(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	env, err := crypto.Encrypt([]byte("data"), "pw")
	rtest.OK(t, err)

	_, err = crypto.Decrypt(env.Salt, env.Nonce[:8], env.Ciphertext, "pw")
	rtest.Assert(t, err != nil, "expected error for short nonce")
	rtest.Equals(t, errors.KindCrypto, errors.KindOf(err))
}

func TestEncryptUnique(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	data := []byte("same plaintext")
	e1, err := crypto.Encrypt(data, "pw")
	rtest.OK(t, err)
	e2, err := crypto.Encrypt(data, "pw")
	rtest.OK(t, err)

	rtest.Assert(t, !bytes.Equal(e1.Salt, e2.Salt), "salt reused")
	rtest.Assert(t, !bytes.Equal(e1.Nonce, e2.Nonce), "nonce reused")
	rtest.Assert(t, !bytes.Equal(e1.Ciphertext, e2.Ciphertext), "identical ciphertext")
}

func TestEmptyPassword(t *testing.T) {
	_, err := crypto.Encrypt([]byte("data"), "")
	rtest.Assert(t, err != nil, "expected error for empty password")
	rtest.Equals(t, errors.KindCrypto, errors.KindOf(err))
}

func TestSealOpenEnvelope(t *testing.T) {
	crypto.TestUseLowSecurityKDFParameters(t)

	data := rtest.Random(7, 3000)
	buf, err := crypto.Seal(data, "pw")
	rtest.OK(t, err)
	rtest.Equals(t, crypto.SaltSize+crypto.NonceSize+len(data)+crypto.Extension, len(buf))

	plaintext, err := crypto.Open(buf, "pw")
	rtest.OK(t, err)
	rtest.Assert(t, bytes.Equal(plaintext, data), "wrong plaintext")

	_, err = crypto.Open(buf[:10], "pw")
	rtest.Equals(t, errors.KindSerialization, errors.KindOf(err))
}

func TestKDFDeterministic(t *testing.T) {
	salt := rtest.Random(1, crypto.SaltSize)
	p := crypto.Params{Time: 1, Memory: 64, Threads: 1}

	k1, err := crypto.KDF(p, salt, "pw")
	rtest.OK(t, err)
	k2, err := crypto.KDF(p, salt, "pw")
	rtest.OK(t, err)

	nonce, err := crypto.NewRandomNonce()
	rtest.OK(t, err)
	ciphertext := k1.Seal(nil, nonce, []byte("hello"), nil)
	plaintext, err := k2.Open(nil, nonce, ciphertext, nil)
	rtest.OK(t, err)
	rtest.Equals(t, "hello", string(plaintext))
}

func TestKDFInvalidParams(t *testing.T) {
	salt := rtest.Random(1, crypto.SaltSize)

	for _, p := range []crypto.Params{
		{Time: 0, Memory: 64, Threads: 1},
		{Time: 1, Memory: 64, Threads: 0},
		{Time: 1, Memory: 4, Threads: 1},
	} {
		_, err := crypto.KDF(p, salt, "pw")
		rtest.Assert(t, err != nil, "expected error for params %+v", p)
	}

	_, err := crypto.KDF(crypto.Params{Time: 1, Memory: 64, Threads: 1}, nil, "pw")
	rtest.Assert(t, err != nil, "expected error for empty salt")
}

func BenchmarkEncrypt(b *testing.B) {
	crypto.TestUseLowSecurityKDFParameters(b)
	data := rtest.Random(23, 1<<20)

	b.SetBytes(int64(len(data)))
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, err := crypto.Encrypt(data, "pw")
		rtest.OK(b, err)
	}
}
