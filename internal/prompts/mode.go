package prompts

// Mode selects the single-phase prompt variant.
type Mode string

const (
	// ModeStrict converts the user's content verbatim and adds no graphics.
	ModeStrict Mode = "strict"
	// ModeStrictWithGraphics preserves content but suggests graphics for unlabeled slides.
	ModeStrictWithGraphics Mode = "strict_with_graphics"
	// ModeCreative builds a full deck from content and references.
	ModeCreative Mode = "creative"
)

// ResolveMode maps the request flags to a mode. fillMissingGraphics alone has no effect.
func ResolveMode(buildOnly, fillMissingGraphics bool) Mode {
	switch {
	case buildOnly && fillMissingGraphics:
		return ModeStrictWithGraphics
	case buildOnly:
		return ModeStrict
	default:
		return ModeCreative
	}
}

// Template returns the template name for the mode.
func (m Mode) Template() string {
	switch m {
	case ModeStrict:
		return SingleStrict
	case ModeStrictWithGraphics:
		return SingleStrictGraphics
	default:
		return SingleCreative
	}
}
