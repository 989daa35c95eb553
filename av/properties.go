package av

// Properties describes where an RTP payload sits within the media unit it
// carries, as reported by the codecs' GetPacketProperties functions.
type Properties uint8

const (
	// PropertyStart marks a payload that begins a unit.
	PropertyStart Properties = 1 << iota
	// PropertyEnd marks a payload that completes a unit.
	PropertyEnd
)

// IsStart reports whether PropertyStart is set.
func (p Properties) IsStart() bool { return p&PropertyStart != 0 }

// IsEnd reports whether PropertyEnd is set.
func (p Properties) IsEnd() bool { return p&PropertyEnd != 0 }
