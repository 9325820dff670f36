// Package cryptox implements reversible protection of stored credentials.
//
// Passwords are encrypted with AES-256-CBC rather than hashed because the
// login flow compares by decrypting the stored value, and stored values are
// exported for audit in that form. A one-way password hash (argon2id,
// bcrypt) would be the better scheme for new systems; this package keeps the
// reversible behaviour so existing records and exports stay valid.
package cryptox

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/dmitrijs2005/msauth/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	ivSize  = aes.BlockSize
	keySize = 32
)

// keySalt separates the cipher key from any other key derived from the same
// configured secret.
var keySalt = []byte("msauth/credential-cipher/v1")

// DeriveKey stretches the configured secret into an AES-256 key.
func DeriveKey(secret []byte) []byte {
	return argon2.IDKey(secret, keySalt, 1, 64*1024, 4, keySize)
}

// Cipher encrypts and decrypts credential strings with a single key fixed at
// construction. It holds no other state and is safe for concurrent use.
type Cipher struct {
	block cipher.Block
}

// NewCipher derives the key from secret. An empty secret is a configuration
// error.
func NewCipher(secret string) (*Cipher, error) {
	if secret == "" {
		return nil, errors.New("cipher secret is empty")
	}
	block, err := aes.NewCipher(DeriveKey([]byte(secret)))
	if err != nil {
		return nil, err
	}
	return &Cipher{block: block}, nil
}

// Encrypt returns "<ivHex>:<cipherHex>" for plaintext. Every call draws a
// fresh random IV, so equal inputs produce different outputs.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	iv := common.GenerateRandByteArray(ivSize)

	padded := pkcs7Pad([]byte(plaintext), aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, padded)

	return hex.EncodeToString(iv) + ":" + hex.EncodeToString(out), nil
}

// Decrypt reverses Encrypt. A value that is not "<ivHex>:<cipherHex>" fails
// with common.ErrMalformedCiphertext; a body that does not decrypt to validly
// padded data fails with common.ErrDecryptionError.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	ivHex, bodyHex, ok := strings.Cut(ciphertext, ":")
	if !ok || ivHex == "" || bodyHex == "" {
		return "", common.NewError(common.KindMalformedCiphertext, errors.New("expected <iv>:<ciphertext>"))
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", common.NewError(common.KindMalformedCiphertext, err)
	}
	if len(iv) != ivSize {
		return "", common.NewError(common.KindMalformedCiphertext, errors.New("invalid iv length"))
	}

	body, err := hex.DecodeString(bodyHex)
	if err != nil {
		return "", common.NewError(common.KindMalformedCiphertext, err)
	}
	if len(body) == 0 || len(body)%aes.BlockSize != 0 {
		return "", common.NewError(common.KindDecryptionError, errors.New("ciphertext is not a multiple of the block size"))
	}

	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(out, body)

	plain, err := pkcs7Unpad(out, aes.BlockSize)
	if err != nil {
		return "", common.NewError(common.KindDecryptionError, err)
	}
	return string(plain), nil
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(b, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}
