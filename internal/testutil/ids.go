package testutil

// FixedIDGenerator generates the same event id every time.
//
// The same scenario with the same FixedIDGenerator produces byte-identical
// trigger events, which keeps golden output stable.
//
// Thread-safety: FixedIDGenerator is stateless and safe for concurrent use.
type FixedIDGenerator struct {
	id string
}

// NewFixedIDGenerator creates a fixed id generator. An empty id falls back
// to "test-event-default".
func NewFixedIDGenerator(id string) *FixedIDGenerator {
	if id == "" {
		id = "test-event-default"
	}
	return &FixedIDGenerator{id: id}
}

// Generate returns the fixed id.
//
// Implements notify.IDGenerator interface.
func (g *FixedIDGenerator) Generate() string {
	return g.id
}
