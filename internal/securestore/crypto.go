// Package securestore encrypts sensitive card record fields at rest. Keys
// are derived from a password with PBKDF2-HMAC-SHA256; fields are sealed
// with AES-256-GCM and stored as base64(iv || tag || ciphertext).
package securestore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"github.com/avream/cardsnoop/internal/model"
)

const (
	// Iterations is the PBKDF2 iteration count. Deliberately expensive:
	// key derivation is the brute-force bottleneck.
	Iterations = 600_000

	keySize  = 32
	saltSize = 16
	ivSize   = 16
	tagSize  = 16
	padBlock = 16
)

// DeriveKey derives a 32-byte AES key from the password. A nil salt
// generates a fresh random 16-byte one; callers reopening an existing store
// must pass the persisted salt. An empty password is rejected before any
// derivation work.
func DeriveKey(password string, salt []byte, iterations int) (key, usedSalt []byte, err error) {
	if password == "" {
		return nil, nil, model.ErrEmptyPassword
	}
	if iterations <= 0 {
		iterations = Iterations
	}

	if len(salt) == 0 {
		salt = make([]byte, saltSize)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("generate salt: %w", err)
		}
	}

	key = pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New)
	return key, salt, nil
}

// encrypt seals plaintext under key with a fresh random IV and returns
// base64(iv || tag || ciphertext). The plaintext is PKCS7-padded first.
func encrypt(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", fmt.Errorf("create gcm: %w", err)
	}

	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("generate iv: %w", err)
	}

	padded := pkcs7Pad([]byte(plaintext), padBlock)
	sealed := gcm.Seal(nil, iv, padded, nil)

	// Seal appends the tag; the storage layout wants it up front.
	ct := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	out := make([]byte, 0, ivSize+tagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// decrypt reverses encrypt. Any failure, including an authentication tag
// mismatch, surfaces as model.ErrDecryption.
func decrypt(encoded string, key []byte) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrDecryption, "invalid base64")
	}
	if len(raw) < ivSize+tagSize {
		return "", fmt.Errorf("%w: %s", model.ErrDecryption, "ciphertext too short")
	}

	iv := raw[:ivSize]
	tag := raw[ivSize : ivSize+tagSize]
	ct := raw[ivSize+tagSize:]

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrDecryption, err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, ivSize)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrDecryption, err)
	}

	sealed := make([]byte, 0, len(ct)+tagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	padded, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrDecryption, "authentication failed")
	}

	plain, err := pkcs7Unpad(padded, padBlock)
	if err != nil {
		return "", fmt.Errorf("%w: %s", model.ErrDecryption, err)
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	out := make([]byte, len(data)+padLen)
	copy(out, data)
	for i := len(data); i < len(out); i++ {
		out[i] = byte(padLen)
	}
	return out
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, fmt.Errorf("invalid padded length %d", len(data))
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > blockSize {
		return nil, fmt.Errorf("invalid padding byte %d", padLen)
	}
	for _, b := range data[len(data)-padLen:] {
		if int(b) != padLen {
			return nil, fmt.Errorf("inconsistent padding")
		}
	}
	return data[:len(data)-padLen], nil
}

// hashData computes hex-encoded HMAC-SHA256 of data keyed with salt.
func hashData(data string, salt []byte) string {
	mac := hmac.New(sha256.New, salt)
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// SecureCompare compares two strings in constant time.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// Wipe overwrites the buffer with random bytes and then zeros. Best-effort
// defense in depth: the GC may already have copied the data elsewhere.
func Wipe(data []byte) {
	if len(data) == 0 {
		return
	}
	rand.Read(data) //nolint:errcheck
	for i := range data {
		data[i] = 0
	}
}
