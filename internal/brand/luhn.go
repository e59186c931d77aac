package brand

import (
	"crypto/rand"
	"errors"
)

var errTooShort = errors.New("brand: card number length must be at least 4")

// Mod10Check reports whether the digit string passes the Luhn checksum.
// Non-digit input fails the check.
func Mod10Check(number string) bool {
	if number == "" {
		return false
	}

	total := 0
	for i := len(number) - 1; i >= 0; i-- {
		ch := number[i]
		if ch < '0' || ch > '9' {
			return false
		}
		digit := int(ch - '0')
		if (len(number)-i)%2 == 0 {
			digit *= 2
			if digit > 9 {
				digit = digit/10 + digit%10
			}
		}
		total += digit
	}
	return total%10 == 0
}

// GenerateNumber produces a random digit string of the given length whose
// Luhn check digit is valid. Lengths below 4 are rejected.
func GenerateNumber(length int) (string, error) {
	if length < 4 {
		return "", errTooShort
	}

	buf := make([]byte, length-1)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}

	digits := make([]byte, length)
	total := 0
	for i := 0; i < length-1; i++ {
		d := int(buf[i]) % 10
		digits[i] = byte('0' + d)
		if (length-1-i)%2 == 1 {
			d *= 2
			if d > 9 {
				d = d/10 + d%10
			}
		}
		total += d
	}
	digits[length-1] = byte('0' + (10-total%10)%10)

	return string(digits), nil
}
