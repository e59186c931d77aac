// Package magstripe decodes raw magnetic-stripe track data into characters
// and delimited fields, and aggregates tracks into a card. The decoder
// expects byte-aligned reader output, one byte per logical symbol; it does
// not demodulate raw ISO 7811 flux.
package magstripe

import (
	"strings"

	"github.com/avream/cardsnoop/internal/bitstream"
)

// CharSet identifies the character encoding of a track.
type CharSet int

const (
	// CharSetNone means the character set has not been resolved yet.
	CharSetNone CharSet = iota
	// CharSetAlphanumeric is the 6-bit alphanumeric set used by track 1.
	CharSetAlphanumeric
	// CharSetNumeric is the BCD numeric set used by tracks 2 and 3.
	CharSetNumeric
)

func (c CharSet) String() string {
	switch c {
	case CharSetAlphanumeric:
		return "alphanumeric"
	case CharSetNumeric:
		return "numeric"
	default:
		return "none"
	}
}

// Alphanumeric decode table control codes.
const (
	alphaFieldSep    = 0x1F
	alphaEndSentinel = 0x1E
	alphaSubfieldSep = 0x1D
)

// BCD nibble control codes.
const (
	bcdFieldSep      = 0x0A
	bcdStartSentinel = 0x0B
	bcdEndSentinel   = 0x0F
)

// Track is one data lane of a magstripe card. A Track is decoded at most
// once; Decode is idempotent and fields are always derived from the decoded
// characters, never set independently.
type Track struct {
	number     int
	charSet    CharSet
	decoded    bool
	characters string
	fields     []string
	stream     *bitstream.Stream
}

// NewTrack creates a track over raw reader bytes. number is 1, 2 or 3.
func NewTrack(data []byte, number int) *Track {
	return &Track{
		number: number,
		stream: bitstream.New(data),
	}
}

// NewTrackFromString creates a track from already-decoded characters,
// bypassing the bit-level decode.
func NewTrackFromString(chars string, number int) *Track {
	t := &Track{number: number}
	t.SetChars(chars)
	return t
}

// Number returns the track number.
func (t *Track) Number() int {
	return t.number
}

// CharSet returns the resolved character set.
func (t *Track) CharSet() CharSet {
	return t.charSet
}

// Decoded reports whether the track has been decoded.
func (t *Track) Decoded() bool {
	return t.decoded
}

// Chars returns the decoded character string.
func (t *Track) Chars() string {
	return t.characters
}

// Fields returns the extracted fields in order.
func (t *Track) Fields() []string {
	out := make([]string, len(t.fields))
	copy(out, t.fields)
	return out
}

// Field returns the field at index, or "" when out of range.
func (t *Track) Field(index int) string {
	if index >= 0 && index < len(t.fields) {
		return t.fields[index]
	}
	return ""
}

// NumFields returns the number of extracted fields.
func (t *Track) NumFields() int {
	return len(t.fields)
}

// Valid reports whether the track decoded to any characters. It decodes on
// demand.
func (t *Track) Valid() bool {
	if !t.decoded {
		t.Decode()
	}
	return len(t.characters) > 0
}

// SetChars sets decoded characters directly and extracts fields. The track
// is marked decoded. The character set is resolved from the track number and
// content if it was not known yet, so field extraction stays a function of
// characters and number alone.
func (t *Track) SetChars(chars string) {
	t.characters = chars
	if t.charSet == CharSetNone {
		t.charSet = t.resolveCharSet()
	}
	t.decoded = true
	t.extractFields()
}

// Decode resolves the character set, decodes the raw bytes into characters
// and extracts fields. Calling Decode on an already-decoded track is a
// no-op.
func (t *Track) Decode() {
	if t.decoded {
		return
	}

	if t.stream != nil {
		if t.charSet == CharSetNone {
			t.charSet = t.resolveCharSet()
		}
		switch t.charSet {
		case CharSetAlphanumeric:
			t.decodeAlpha()
		case CharSetNumeric:
			t.decodeBCD()
		}
	}

	t.decoded = true
	t.extractFields()
}

// resolveCharSet picks the character set: fixed by track number when known,
// otherwise inferred from content, defaulting to alphanumeric for track 1
// and numeric for the rest.
func (t *Track) resolveCharSet() CharSet {
	switch t.number {
	case 1:
		return CharSetAlphanumeric
	case 2:
		return CharSetNumeric
	}

	if t.characters != "" {
		if strings.HasPrefix(t.characters, "%") || strings.Contains(t.characters, "^") {
			return CharSetAlphanumeric
		}
		if strings.HasPrefix(t.characters, ";") || strings.Contains(t.characters, "=") {
			return CharSetNumeric
		}
	}

	if t.number == 1 {
		return CharSetAlphanumeric
	}
	return CharSetNumeric
}

// decodeAlpha maps each byte through the alphanumeric table. Bytes outside
// the table are skipped, not errors. Decoding stops at the end sentinel.
func (t *Track) decodeAlpha() {
	var sb strings.Builder
	sb.WriteString(t.characters)

	t.stream.Rewind()
	for !t.stream.EOF() {
		ch, err := t.stream.ReadByte()
		if err != nil {
			break
		}
		switch {
		case ch == alphaFieldSep:
			sb.WriteByte('^')
		case ch == alphaEndSentinel || ch == '?':
			sb.WriteByte('?')
			t.characters = sb.String()
			t.charSet = CharSetAlphanumeric
			return
		case ch == alphaSubfieldSep:
			sb.WriteByte(':')
		case ch >= 0x20 && ch <= 0x5F:
			sb.WriteByte(ch)
		}
	}

	t.characters = sb.String()
	t.charSet = CharSetAlphanumeric
}

// decodeBCD maps raw bytes through the BCD nibble table, low nibble first.
// Printable ASCII bytes pass through verbatim to cover readers that deliver
// pre-decoded text. The result is normalized to the ;...? sentinel wrapper
// when any content was produced.
func (t *Track) decodeBCD() {
	chars := t.characters

	t.stream.Rewind()
decode:
	for !t.stream.EOF() {
		b, err := t.stream.ReadByte()
		if err != nil {
			break
		}

		if b >= 0x20 && b <= 0x7E {
			chars += string(rune(b))
			continue
		}

		for _, nibble := range []byte{b & 0x0F, (b >> 4) & 0x0F} {
			switch {
			case nibble <= 9:
				chars += string(rune('0' + nibble))
			case nibble == bcdFieldSep:
				chars += "="
			case nibble == bcdStartSentinel:
				if !strings.HasPrefix(chars, ";") {
					chars = ";" + chars
				}
			case nibble == bcdEndSentinel:
				if !strings.HasSuffix(chars, "?") {
					chars += "?"
				}
				break decode
			}
		}
	}

	if chars != "" {
		if !strings.HasPrefix(chars, ";") {
			chars = ";" + chars
		}
		if !strings.HasSuffix(chars, "?") {
			chars += "?"
		}
	}

	t.characters = chars
	t.charSet = CharSetNumeric
}

// extractFields derives fields from characters. It never fails: any input
// that does not parse collapses to a single raw field.
func (t *Track) extractFields() {
	if t.characters == "" {
		t.fields = nil
		return
	}

	if t.charSet == CharSetNumeric && t.number == 2 {
		t.fields = extractTrack2Fields(t.characters)
		return
	}
	t.fields = t.extractDelimitedFields()
}

// extractTrack2Fields splits ;PAN=YYMMSSSdiscretionary? into PAN,
// expiration, service code and discretionary data.
func extractTrack2Fields(chars string) []string {
	data := strings.TrimSpace(strings.Trim(chars, ";?"))

	pan, rest, found := strings.Cut(data, "=")
	if !found {
		return []string{digitsOnly(data)}
	}

	fields := []string{digitsOnly(pan)}
	if len(rest) >= 4 {
		fields = append(fields, rest[:4]) // YYMM
		if len(rest) >= 7 {
			fields = append(fields, rest[4:7]) // service code
		}
		if len(rest) > 7 {
			fields = append(fields, rest[7:])
		}
	}
	return fields
}

// extractDelimitedFields splits track 1 style data on ^ and = delimiters
// into non-empty fields, preserving the ISO format-code marker on the first
// field of track 1.
func (t *Track) extractDelimitedFields() []string {
	data := strings.TrimPrefix(t.characters, "%")

	var fields []string
	var current strings.Builder
	for _, ch := range data {
		if ch == '^' || ch == '=' {
			if current.Len() > 0 {
				fields = append(fields, current.String())
				current.Reset()
			}
			continue
		}
		current.WriteRune(ch)
	}
	if current.Len() > 0 {
		fields = append(fields, current.String())
	}

	if t.number == 1 && len(fields) > 0 &&
		!strings.HasPrefix(fields[0], "B") && strings.HasPrefix(t.characters, "%B") {
		fields[0] = "B" + fields[0]
	}

	return fields
}

func digitsOnly(s string) string {
	var sb strings.Builder
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			sb.WriteRune(ch)
		}
	}
	return sb.String()
}
