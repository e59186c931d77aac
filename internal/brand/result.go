// Package brand classifies decoded magstripe cards by issuer brand. The
// detector holds an ordered list of brand tests and applies the first
// matching one; a non-match is a value, never an error.
package brand

// Tag is a named value extracted during classification, such as the card
// number or expiration date.
type Tag struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// TestResult is the outcome of one classification pass. The zero value is
// the invalid "no match" result.
type TestResult struct {
	CardType  string   `json:"card_type"`
	Valid     bool     `json:"valid"`
	Tags      []Tag    `json:"tags"`
	ExtraTags []string `json:"extra_tags"`
}

// SetCardType sets the card type and marks the result valid when non-empty.
func (r *TestResult) SetCardType(cardType string) {
	r.CardType = cardType
	r.Valid = cardType != ""
}

// AddTag upserts a named tag, keeping insertion order for new names.
func (r *TestResult) AddTag(name, value string) {
	for i, t := range r.Tags {
		if t.Name == name {
			r.Tags[i].Value = value
			return
		}
	}
	r.Tags = append(r.Tags, Tag{Name: name, Value: value})
}

// Tag returns the value of the named tag, or "" when absent.
func (r *TestResult) Tag(name string) string {
	for _, t := range r.Tags {
		if t.Name == name {
			return t.Value
		}
	}
	return ""
}

// AddExtraTag adds a free-form tag once.
func (r *TestResult) AddExtraTag(tag string) {
	if tag == "" {
		return
	}
	for _, t := range r.ExtraTags {
		if t == tag {
			return
		}
	}
	r.ExtraTags = append(r.ExtraTags, tag)
}
