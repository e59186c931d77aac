package brand

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/avream/cardsnoop/internal/magstripe"
)

// Test is one brand classification unit. Implementations are stateless and
// deterministic; Run returns the zero TestResult on non-match.
type Test interface {
	Name() string
	RequiredTracks() []int
	Run(card *magstripe.Card) TestResult
}

var (
	isoPANRe     = regexp.MustCompile(`^;(\d+)=`)
	presentPANRe = regexp.MustCompile(`^%B(\d+)\^`)
	expirationRe = regexp.MustCompile(`=(\d{2})(\d{2})`)

	visaServiceRe    = regexp.MustCompile(`=(?:\d{14,19})(\d{3})`)
	sixteenServiceRe = regexp.MustCompile(`=(?:\d{16})(\d{3})`)
)

// extractPAN pulls the PAN out of track 2 text, accepting the ISO format
// (;PAN=...) and the card-present format (%BPAN^...).
func extractPAN(trackData string) string {
	if m := isoPANRe.FindStringSubmatch(trackData); m != nil {
		return m[1]
	}
	if m := presentPANRe.FindStringSubmatch(trackData); m != nil {
		return m[1]
	}
	return ""
}

// track2Chars returns the decoded character string of track 2, or "".
func track2Chars(card *magstripe.Card) string {
	t := card.Track(2)
	if t == nil {
		return ""
	}
	return t.Chars()
}

// tagExpiration adds a best-effort Expiration tag parsed from the 4 digits
// following the field separator, as 20YY-MM.
func tagExpiration(r *TestResult, trackData string) {
	if m := expirationRe.FindStringSubmatch(trackData); m != nil {
		r.AddTag("Expiration", "20"+m[1]+"-"+m[2])
	}
}

// tagServiceCode adds the 3-digit service code found at the fixed offset
// after the PAN digit count.
func tagServiceCode(r *TestResult, trackData string, re *regexp.Regexp) {
	if m := re.FindStringSubmatch(trackData); m != nil {
		r.AddTag("Service Code", m[1])
	}
}

// VisaTest matches PANs of length 13, 16 or 19 starting with 4.
type VisaTest struct{}

func (VisaTest) Name() string          { return "Visa" }
func (VisaTest) RequiredTracks() []int { return []int{2} }

func (v VisaTest) Run(card *magstripe.Card) TestResult {
	var result TestResult
	data := track2Chars(card)
	pan := extractPAN(data)
	if pan == "" {
		return result
	}

	if !(len(pan) == 13 || len(pan) == 16 || len(pan) == 19) || !strings.HasPrefix(pan, "4") {
		return result
	}

	result.SetCardType("Visa")
	result.AddTag("Card Number", pan)
	tagExpiration(&result, data)
	tagServiceCode(&result, data, visaServiceRe)
	return result
}

// MastercardTest matches 16-digit PANs starting 51-55.
type MastercardTest struct{}

func (MastercardTest) Name() string          { return "Mastercard" }
func (MastercardTest) RequiredTracks() []int { return []int{2} }

func (m MastercardTest) Run(card *magstripe.Card) TestResult {
	var result TestResult
	data := track2Chars(card)
	pan := extractPAN(data)
	if pan == "" || len(pan) != 16 {
		return result
	}

	firstTwo, err := strconv.Atoi(pan[:2])
	if err != nil || firstTwo < 51 || firstTwo > 55 {
		return result
	}

	result.SetCardType("Mastercard")
	result.AddTag("Card Number", pan)
	tagExpiration(&result, data)
	tagServiceCode(&result, data, sixteenServiceRe)
	return result
}

// AmericanExpressTest matches 15-digit PANs starting 34 or 37.
type AmericanExpressTest struct{}

func (AmericanExpressTest) Name() string          { return "American Express" }
func (AmericanExpressTest) RequiredTracks() []int { return []int{2} }

func (a AmericanExpressTest) Run(card *magstripe.Card) TestResult {
	var result TestResult
	data := track2Chars(card)
	pan := extractPAN(data)
	if pan == "" {
		return result
	}

	if len(pan) != 15 || !(strings.HasPrefix(pan, "34") || strings.HasPrefix(pan, "37")) {
		return result
	}

	result.SetCardType("American Express")
	result.AddTag("Card Number", pan)
	tagExpiration(&result, data)
	return result
}

// DiscoverTest matches 16-digit PANs starting 6011, 65 or 644-649.
type DiscoverTest struct{}

func (DiscoverTest) Name() string          { return "Discover" }
func (DiscoverTest) RequiredTracks() []int { return []int{2} }

func (d DiscoverTest) Run(card *magstripe.Card) TestResult {
	var result TestResult
	data := track2Chars(card)
	pan := extractPAN(data)
	if pan == "" || len(pan) != 16 {
		return result
	}

	match := strings.HasPrefix(pan, "6011") ||
		strings.HasPrefix(pan, "65") ||
		(pan[:3] >= "644" && pan[:3] <= "649")
	if !match {
		return result
	}

	result.SetCardType("Discover")
	result.AddTag("Card Number", pan)
	tagExpiration(&result, data)
	tagServiceCode(&result, data, sixteenServiceRe)
	return result
}

// JCBTest matches 16-digit PANs in the 3528-3589 range.
type JCBTest struct{}

func (JCBTest) Name() string          { return "JCB" }
func (JCBTest) RequiredTracks() []int { return []int{2} }

func (j JCBTest) Run(card *magstripe.Card) TestResult {
	var result TestResult
	data := track2Chars(card)
	pan := extractPAN(data)
	if pan == "" || len(pan) != 16 {
		return result
	}

	firstFour, err := strconv.Atoi(pan[:4])
	if err != nil || firstFour < 3528 || firstFour > 3589 {
		return result
	}

	result.SetCardType("JCB")
	result.AddTag("Card Number", pan)
	tagExpiration(&result, data)
	return result
}

// DinersClubTest matches 14-digit PANs starting 300-305, 36, 38 or 39.
type DinersClubTest struct{}

func (DinersClubTest) Name() string          { return "Diners Club" }
func (DinersClubTest) RequiredTracks() []int { return []int{2} }

func (d DinersClubTest) Run(card *magstripe.Card) TestResult {
	var result TestResult
	data := track2Chars(card)
	pan := extractPAN(data)
	if pan == "" || len(pan) != 14 {
		return result
	}

	firstThree, err := strconv.Atoi(pan[:3])
	if err != nil {
		return result
	}
	firstTwo := pan[:2]
	if !(firstThree >= 300 && firstThree <= 305) &&
		firstTwo != "36" && firstTwo != "38" && firstTwo != "39" {
		return result
	}

	result.SetCardType("Diners Club")
	result.AddTag("Card Number", pan)
	tagExpiration(&result, data)
	return result
}
