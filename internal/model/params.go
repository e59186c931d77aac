package model

// IngestCardParams carries one full card read: the raw bytes of each
// captured track keyed by track number, plus a user supplied label.
type IngestCardParams struct {
	Label  string
	Tracks map[int][]byte
}
