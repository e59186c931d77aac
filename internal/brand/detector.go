package brand

import "github.com/avream/cardsnoop/internal/magstripe"

// Detector runs an ordered list of brand tests against a card. Registration
// order is part of the contract: the first valid result wins and later tests
// do not run. Register all tests before the first detection pass; the test
// list is read-only during RunTests.
type Detector struct {
	tests []Test
}

// NewDetector creates a detector with the six built-in brand tests in their
// canonical order.
func NewDetector() *Detector {
	return &Detector{tests: []Test{
		VisaTest{},
		MastercardTest{},
		AmericanExpressTest{},
		DiscoverTest{},
		JCBTest{},
		DinersClubTest{},
	}}
}

// NewEmptyDetector creates a detector with no registered tests.
func NewEmptyDetector() *Detector {
	return &Detector{}
}

// Register appends a test to the end of the run order.
func (d *Detector) Register(t Test) {
	d.tests = append(d.tests, t)
}

// Tests returns the registered tests in run order.
func (d *Detector) Tests() []Test {
	out := make([]Test, len(d.tests))
	copy(out, d.tests)
	return out
}

// RunTests classifies the card. Tests whose required tracks are absent are
// skipped; the first valid result is returned and annotated with the Luhn
// outcome of the card number. When nothing matches, the zero (invalid)
// result is returned.
func (d *Detector) RunTests(card *magstripe.Card) TestResult {
	for _, t := range d.tests {
		if !hasRequiredTracks(card, t.RequiredTracks()) {
			continue
		}
		result := t.Run(card)
		if result.Valid {
			if pan := result.Tag("Card Number"); pan != "" {
				if Mod10Check(pan) {
					result.AddExtraTag("luhn:valid")
				} else {
					result.AddExtraTag("luhn:invalid")
				}
			}
			return result
		}
	}
	return TestResult{}
}

// hasRequiredTracks checks track availability via the stored tracks, not
// just the presence flags.
func hasRequiredTracks(card *magstripe.Card, required []int) bool {
	for _, n := range required {
		if card.Track(n) == nil {
			return false
		}
	}
	return true
}
