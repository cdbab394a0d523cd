package models

// ContentSlide is one slide message produced by the content strategist.
type ContentSlide struct {
	SlideNumber    int         `json:"slideNumber"`
	Message        string      `json:"message"`
	SupportingText string      `json:"supportingText,omitempty"`
	DataPoints     []string    `json:"dataPoints,omitempty"`
	SlideIntent    SlideIntent `json:"slideIntent"`
}

// ContentPlan is the output of the content strategy phase.
type ContentPlan struct {
	DeckTitle       string         `json:"deckTitle"`
	DeckDescription string         `json:"deckDescription"`
	Slides          []ContentSlide `json:"slides"`
}

// VisualStrategy describes the visual the designer wants on a slide.
type VisualStrategy struct {
	Type           string `json:"type"`
	Description    string `json:"description"`
	DetailedPrompt string `json:"detailedPrompt"`
	Position       string `json:"position"`
	Style          string `json:"style"`
}

// Typography carries headline and emphasis decisions.
type Typography struct {
	Headline          string   `json:"headline"`
	HeadlineSize      string   `json:"headlineSize"`
	Subtext           string   `json:"subtext,omitempty"`
	EmphasizedNumbers []string `json:"emphasizedNumbers,omitempty"`
}

// ColorScheme is the per-slide color triple.
type ColorScheme struct {
	Primary    string `json:"primary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
}

// SlideDesign is one slide record produced by the visual designer.
type SlideDesign struct {
	SlideNumber    int            `json:"slideNumber"`
	Layout         Layout         `json:"layout"`
	Background     Background     `json:"background"`
	VisualStrategy VisualStrategy `json:"visualStrategy"`
	Typography     Typography     `json:"typography"`
	ColorScheme    ColorScheme    `json:"colorScheme"`
}

// DesignPlan is the output of the visual design phase.
type DesignPlan struct {
	Slides []SlideDesign `json:"slides"`
}

// SlideGraphics holds the generated visuals for one slide.
type SlideGraphics struct {
	SlideNumber int    `json:"slideNumber"`
	ImageURL    string `json:"imageUrl,omitempty"`
	FallbackURL string `json:"fallbackUrl,omitempty"`
}

// GraphicsResult is the output of the graphics phase.
type GraphicsResult struct {
	Slides []SlideGraphics `json:"slides"`
}
