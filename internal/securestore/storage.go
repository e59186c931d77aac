package securestore

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/avream/cardsnoop/internal/model"
)

// SensitiveFields is the fixed set of card record fields encrypted at rest,
// in encryption order.
var SensitiveFields = []string{
	"number", "expiration", "cvv", "holder_name", "tracks", "track1", "track2",
}

// fixedHashSalt keys the card-number lookup hash. Only the last 4 PAN digits
// are hashed, so the entropy is bounded regardless of the salt; the hash is
// for coarse lookup, not PAN storage.
var fixedHashSalt = []byte("cardsnoop.pan-lookup.v1")

// Storage holds a password-derived key for one vault session. The key never
// leaves the struct; Destroy wipes it when the session closes.
type Storage struct {
	key  []byte
	salt []byte
}

// New derives a session key from the password with the default iteration
// count. Pass the persisted salt when reopening an existing store; nil
// generates a fresh one.
func New(password string, salt []byte) (*Storage, error) {
	return NewWithIterations(password, salt, Iterations)
}

// NewWithIterations is New with an explicit PBKDF2 iteration count. Tests
// use a low count to stay fast; production code uses New.
func NewWithIterations(password string, salt []byte, iterations int) (*Storage, error) {
	key, usedSalt, err := DeriveKey(password, salt, iterations)
	if err != nil {
		return nil, err
	}
	return &Storage{key: key, salt: usedSalt}, nil
}

// Salt returns the key derivation salt. It must be persisted alongside the
// ciphertexts: without it the key, and therefore all data, is unrecoverable.
func (s *Storage) Salt() []byte {
	out := make([]byte, len(s.salt))
	copy(out, s.salt)
	return out
}

// Destroy wipes the derived key. The storage must not be used afterwards.
func (s *Storage) Destroy() {
	Wipe(s.key)
	s.key = nil
}

// EncryptedRecord is a card record with its sensitive fields sealed. Its
// JSON form is flat: passthrough fields keep their names, sealed fields get
// an encrypted_ prefix, and _secure/_salt carry the storage metadata.
type EncryptedRecord struct {
	Encrypted map[string]string
	Plain     model.CardRecord
	Secure    bool
	Salt      string
}

// MarshalJSON flattens the record into the persisted shape.
func (r EncryptedRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)

	for _, name := range SensitiveFields {
		if v, ok := r.Plain.Field(name); ok && v != "" {
			out[name] = v
		}
	}
	for k, v := range r.Plain.Extra {
		out[k] = v
	}
	for name, ct := range r.Encrypted {
		out["encrypted_"+name] = ct
	}
	if r.Secure {
		out["_secure"] = true
		out["_salt"] = r.Salt
	}

	return json.Marshal(out)
}

// UnmarshalJSON parses the flat persisted shape back into the record.
func (r *EncryptedRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = EncryptedRecord{Encrypted: make(map[string]string)}
	for key, val := range raw {
		switch {
		case key == "_secure":
			if err := json.Unmarshal(val, &r.Secure); err != nil {
				return fmt.Errorf("parse _secure: %w", err)
			}
		case key == "_salt":
			if err := json.Unmarshal(val, &r.Salt); err != nil {
				return fmt.Errorf("parse _salt: %w", err)
			}
		case strings.HasPrefix(key, "encrypted_"):
			var ct string
			if err := json.Unmarshal(val, &ct); err != nil {
				return fmt.Errorf("parse %s: %w", key, err)
			}
			r.Encrypted[strings.TrimPrefix(key, "encrypted_")] = ct
		default:
			var v string
			if err := json.Unmarshal(val, &v); err != nil {
				// Non-string metadata is preserved verbatim.
				v = string(val)
			}
			r.Plain.SetField(key, v)
		}
	}
	return nil
}

// EncryptCard seals every present sensitive field of the record and copies
// everything else through unchanged. The result carries the secure marker
// and the base64 salt needed to re-derive the key.
func (s *Storage) EncryptCard(record model.CardRecord) (EncryptedRecord, error) {
	enc := EncryptedRecord{
		Encrypted: make(map[string]string),
		Secure:    true,
		Salt:      base64.StdEncoding.EncodeToString(s.salt),
	}

	for _, name := range SensitiveFields {
		value, _ := record.Field(name)
		if value == "" {
			continue
		}
		ct, err := encrypt(value, s.key)
		if err != nil {
			return EncryptedRecord{}, fmt.Errorf("failed to encrypt %s: %w", name, err)
		}
		enc.Encrypted[name] = ct
	}

	if len(record.Extra) > 0 {
		enc.Plain.Extra = make(map[string]string, len(record.Extra))
		for k, v := range record.Extra {
			enc.Plain.Extra[k] = v
		}
	}

	return enc, nil
}

// DecryptCard opens every sealed field. Records without the secure marker
// pass through unchanged. A wrong key or tampered ciphertext surfaces
// model.ErrDecryption; corrupted plaintext is never returned.
func (s *Storage) DecryptCard(enc EncryptedRecord) (model.CardRecord, error) {
	if !enc.Secure {
		return enc.Plain, nil
	}

	record := enc.Plain
	if enc.Plain.Extra != nil {
		record.Extra = make(map[string]string, len(enc.Plain.Extra))
		for k, v := range enc.Plain.Extra {
			record.Extra[k] = v
		}
	}

	for name, ct := range enc.Encrypted {
		plain, err := decrypt(ct, s.key)
		if err != nil {
			return model.CardRecord{}, fmt.Errorf("failed to decrypt %s: %w", name, err)
		}
		record.SetField(name, plain)
	}
	return record, nil
}

// HashCardNumber produces the lookup hash of a card number: HMAC-SHA256
// over the last 4 digits with the fixed application salt.
func HashCardNumber(cardNumber string) (string, error) {
	if cardNumber == "" {
		return "", fmt.Errorf("card number cannot be empty")
	}

	lastFour := cardNumber
	if len(cardNumber) > 4 {
		lastFour = cardNumber[len(cardNumber)-4:]
	}
	return hashData(lastFour, fixedHashSalt), nil
}

// VerifyCardNumber compares a card number against a stored lookup hash in
// constant time.
func VerifyCardNumber(cardNumber, storedHash string) bool {
	if cardNumber == "" || storedHash == "" {
		return false
	}
	hashed, err := HashCardNumber(cardNumber)
	if err != nil {
		return false
	}
	return SecureCompare(hashed, storedHash)
}
