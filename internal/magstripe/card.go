package magstripe

// Presence is the reader's knowledge about one track slot.
type Presence int

const (
	// PresenceUnknown means the reader did not report on the track.
	PresenceUnknown Presence = iota
	// PresencePresent means the track was read.
	PresencePresent
	// PresenceMissing means the reader looked and found no track.
	PresenceMissing
)

func (p Presence) String() string {
	switch p {
	case PresencePresent:
		return "present"
	case PresenceMissing:
		return "missing"
	default:
		return "unknown"
	}
}

// Card aggregates the up-to-three tracks of one physical card read. The card
// owns its tracks exclusively; presence is PresencePresent exactly for the
// track numbers it holds.
type Card struct {
	tracks   map[int]*Track
	presence map[int]Presence
}

// NewCard creates an empty card.
func NewCard() *Card {
	return &Card{
		tracks:   make(map[int]*Track),
		presence: make(map[int]Presence),
	}
}

// AddTrack stores the track under its number and marks the slot present,
// overriding a prior missing mark.
func (c *Card) AddTrack(t *Track) {
	c.tracks[t.Number()] = t
	c.presence[t.Number()] = PresencePresent
}

// AddMissingTrack marks the slot missing. It does not override an existing
// present track.
func (c *Card) AddMissingTrack(number int) {
	if c.presence[number] == PresencePresent {
		return
	}
	c.presence[number] = PresenceMissing
}

// Track returns the track stored under number, or nil.
func (c *Card) Track(number int) *Track {
	return c.tracks[number]
}

// HasTrack returns the presence state for a track slot.
func (c *Card) HasTrack(number int) Presence {
	return c.presence[number]
}

// TrackNumbers returns the numbers of all stored tracks, unordered.
func (c *Card) TrackNumbers() []int {
	nums := make([]int, 0, len(c.tracks))
	for n := range c.tracks {
		nums = append(nums, n)
	}
	return nums
}

// DecodeTracks decodes every stored track. Each track decodes at most once.
func (c *Card) DecodeTracks() {
	for _, t := range c.tracks {
		t.Decode()
	}
}
