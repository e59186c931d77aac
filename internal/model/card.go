package model

import (
	"time"

	"github.com/google/uuid"
)

// CardRecord is the plaintext card record assembled from a decoded card
// read. All fields are optional; absent fields stay empty. Arbitrary extra
// metadata goes into Extra so the set of named (and therefore encryptable)
// fields stays statically enumerable.
type CardRecord struct {
	Number     string            `json:"number,omitempty"`
	Expiration string            `json:"expiration,omitempty"`
	CVV        string            `json:"cvv,omitempty"`
	HolderName string            `json:"holder_name,omitempty"`
	Tracks     string            `json:"tracks,omitempty"`
	Track1     string            `json:"track1,omitempty"`
	Track2     string            `json:"track2,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Field returns the value of a named sensitive field and whether the name is
// one of the sensitive set.
func (r *CardRecord) Field(name string) (string, bool) {
	switch name {
	case "number":
		return r.Number, true
	case "expiration":
		return r.Expiration, true
	case "cvv":
		return r.CVV, true
	case "holder_name":
		return r.HolderName, true
	case "tracks":
		return r.Tracks, true
	case "track1":
		return r.Track1, true
	case "track2":
		return r.Track2, true
	}
	return "", false
}

// SetField sets a named sensitive field. Unknown names land in Extra.
func (r *CardRecord) SetField(name, value string) {
	switch name {
	case "number":
		r.Number = value
	case "expiration":
		r.Expiration = value
	case "cvv":
		r.CVV = value
	case "holder_name":
		r.HolderName = value
	case "tracks":
		r.Tracks = value
	case "track1":
		r.Track1 = value
	case "track2":
		r.Track2 = value
	default:
		if r.Extra == nil {
			r.Extra = make(map[string]string)
		}
		r.Extra[name] = value
	}
}

// StoredCard is a persisted card entity. The sensitive payload is kept as
// the encrypted record JSON; only non-sensitive lookup columns (label,
// brand, PAN hash) are stored in the clear.
type StoredCard struct {
	ID        uuid.UUID
	Label     string
	Brand     string
	PANHash   string
	DumpKey   string
	Payload   []byte
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}
