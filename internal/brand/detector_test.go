package brand

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avream/cardsnoop/internal/magstripe"
)

func cardWithTrack2(t *testing.T, chars string) *magstripe.Card {
	t.Helper()
	card := magstripe.NewCard()
	card.AddTrack(magstripe.NewTrackFromString(chars, 2))
	return card
}

func TestRunTests_Classification(t *testing.T) {
	tests := []struct {
		name     string
		track2   string
		wantType string
	}{
		{"visa 16", ";4111111111111111=25121010000000000000?", "Visa"},
		{"visa 13", ";4111111111111=2512101?", "Visa"},
		{"mastercard", ";5555555555554444=25121010000000000000?", "Mastercard"},
		{"amex 34", ";340000000000009=2512?", "American Express"},
		{"amex 37", ";370000000000002=2512?", "American Express"},
		{"discover 6011", ";6011000000000004=2512?", "Discover"},
		{"discover 65", ";6500000000000002=2512?", "Discover"},
		{"discover 644", ";6440000000000000=2512?", "Discover"},
		{"jcb", ";3530111333300000=2512?", "JCB"},
		{"diners 300", ";30000000000004=2512?", "Diners Club"},
		{"diners 36", ";36000000000008=2512?", "Diners Club"},
		{"card present format", "%B4111111111111111^DOE/JOHN^2512?", "Visa"},
	}

	detector := NewDetector()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := detector.RunTests(cardWithTrack2(t, tt.track2))
			require.True(t, result.Valid)
			assert.Equal(t, tt.wantType, result.CardType)
			assert.NotEmpty(t, result.Tag("Card Number"))
		})
	}
}

func TestRunTests_NoMatch(t *testing.T) {
	detector := NewDetector()

	result := detector.RunTests(cardWithTrack2(t, ";9999000000000000=2512101?"))
	assert.False(t, result.Valid)
	assert.Empty(t, result.CardType)
	assert.Empty(t, result.Tags)
}

func TestRunTests_SkipsWithoutRequiredTrack(t *testing.T) {
	detector := NewDetector()
	card := magstripe.NewCard()
	card.AddTrack(magstripe.NewTrackFromString("%B4111111111111111^DOE^2512?", 1))

	result := detector.RunTests(card)
	assert.False(t, result.Valid)
}

func TestRunTests_Tags(t *testing.T) {
	detector := NewDetector()

	result := detector.RunTests(cardWithTrack2(t, ";4111111111111111=25121010000000000000?"))
	require.True(t, result.Valid)
	assert.Equal(t, "4111111111111111", result.Tag("Card Number"))
	assert.Equal(t, "2025-12", result.Tag("Expiration"))
	assert.Contains(t, result.ExtraTags, "luhn:valid")
}

func TestRunTests_LuhnInvalidTag(t *testing.T) {
	detector := NewDetector()

	result := detector.RunTests(cardWithTrack2(t, ";4111111111111112=2512101?"))
	require.True(t, result.Valid)
	assert.Contains(t, result.ExtraTags, "luhn:invalid")
}

type stubTest struct {
	name  string
	valid bool
	runs  *int
}

func (s stubTest) Name() string          { return s.name }
func (s stubTest) RequiredTracks() []int { return []int{2} }
func (s stubTest) Run(*magstripe.Card) TestResult {
	*s.runs++
	var r TestResult
	if s.valid {
		r.SetCardType(s.name)
	}
	return r
}

func TestRunTests_FirstMatchWins(t *testing.T) {
	var first, second, third int
	detector := NewEmptyDetector()
	detector.Register(stubTest{name: "first", runs: &first})
	detector.Register(stubTest{name: "second", valid: true, runs: &second})
	detector.Register(stubTest{name: "third", valid: true, runs: &third})

	result := detector.RunTests(cardWithTrack2(t, ";123=456?"))

	assert.Equal(t, "second", result.CardType)
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
	assert.Equal(t, 0, third, "tests after the first match must not run")
}

func TestServiceCodeTag(t *testing.T) {
	result := MastercardTest{}.Run(cardWithTrack2(t, ";5555555555554444=2512101000000000000?"))
	require.True(t, result.Valid)
	assert.NotEmpty(t, result.Tag("Service Code"))
}
