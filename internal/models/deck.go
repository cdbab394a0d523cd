package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SlideIntent classifies the rhetorical purpose of a slide
type SlideIntent string

const (
	IntentTitle      SlideIntent = "title"
	IntentProblem    SlideIntent = "problem"
	IntentSolution   SlideIntent = "solution"
	IntentStats      SlideIntent = "stats"
	IntentProcess    SlideIntent = "process"
	IntentComparison SlideIntent = "comparison"
	IntentCaseStudy  SlideIntent = "case-study"
	IntentCTA        SlideIntent = "cta"
)

// Layout is the visual layout of an assembled slide
type Layout string

const (
	LayoutTitle      Layout = "title"
	LayoutImageFocus Layout = "image-focus"
	LayoutSplit      Layout = "split"
	LayoutStats      Layout = "stats"
	LayoutContent    Layout = "content"
)

// Background is the slide background treatment
type Background string

const (
	BackgroundGradient Background = "gradient"
	BackgroundSolid    Background = "solid"
	BackgroundPattern  Background = "pattern"
)

// GraphicType distinguishes the two enrichment services
type GraphicType string

const (
	GraphicImage GraphicType = "image"
	GraphicIcon  GraphicType = "icon"
)

// Palette is the five-color brand palette
type Palette struct {
	Primary    string `json:"primary"`
	Secondary  string `json:"secondary"`
	Accent     string `json:"accent"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// DefaultPalette is used whenever brand extraction fails.
func DefaultPalette() Palette {
	return Palette{
		Primary:    "#2563eb",
		Secondary:  "#7c3aed",
		Accent:     "#f59e0b",
		Background: "#ffffff",
		Text:       "#1f2937",
	}
}

// BrandAssets is the result of brand extraction. It is always fully populated.
type BrandAssets struct {
	Colors      Palette  `json:"colors"`
	Logo        string   `json:"logo,omitempty"`
	Images      []string `json:"images"`
	CompanyName string   `json:"companyName,omitempty"`
}

// DefaultBrandAssets returns the fallback brand with an empty image list.
func DefaultBrandAssets() BrandAssets {
	return BrandAssets{Colors: DefaultPalette(), Images: []string{}}
}

// Theme is the deck-level visual theme
type Theme struct {
	Colors     Palette `json:"colors"`
	FontFamily string  `json:"fontFamily"`
}

// Graphic describes the visual requested for a slide
type Graphic struct {
	Type     GraphicType `json:"type"`
	Prompt   string      `json:"prompt"`
	Position string      `json:"position,omitempty"`
}

// Bullets decodes either a single string or an array of strings.
type Bullets []string

func (b *Bullets) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*b = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*b = nil
		return nil
	}
	*b = Bullets{single}
	return nil
}

// Slide is one slide of the final deck
type Slide struct {
	ID              string     `json:"id"`
	Type            Layout     `json:"type"`
	Background      Background `json:"background,omitempty"`
	Title           string     `json:"title"`
	Subtitle        string     `json:"subtitle,omitempty"`
	MainStat        string     `json:"mainStat,omitempty"`
	StatLabel       string     `json:"statLabel,omitempty"`
	SupportingStats []string   `json:"supportingStats,omitempty"`
	LeftContent     string     `json:"leftContent,omitempty"`
	Content         Bullets    `json:"content,omitempty"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	FallbackURL     string     `json:"fallbackUrl,omitempty"`
	IconURL         string     `json:"iconUrl,omitempty"`
	Graphic         *Graphic   `json:"graphic,omitempty"`
}

// Deck is the final deck record handed to persistence
type Deck struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Slides      []Slide   `json:"slides"`
	Theme       Theme     `json:"theme"`
	Logo        string    `json:"logo,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
