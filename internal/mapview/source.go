package mapview

// Source is a data set registered with the renderer. The implementations are
// GeoJSONSource, ImageSource and VectorSource.
type Source interface {
	// ID returns the renderer identifier. It is empty until the source is
	// first attached, unless one was supplied at construction.
	ID() string
	// Map returns the controller the source is attached to, or nil.
	Map() *Map
	// Definition renders the addSource payload.
	Definition() (string, error)

	source() *sourceBase
}

type sourceBase struct {
	id string
	m  *Map
}

func (b *sourceBase) ID() string          { return b.id }
func (b *sourceBase) Map() *Map           { return b.m }
func (b *sourceBase) source() *sourceBase { return b }

func (b *sourceBase) attach(m *Map) {
	if b.id == "" {
		b.id = m.NextID("source")
	}
	b.m = m
}

func (b *sourceBase) detach() { b.m = nil }

// exec sends script through the owning map, if any.
func (b *sourceBase) exec(script string) {
	if b.m != nil {
		b.m.exec(script)
	}
}
