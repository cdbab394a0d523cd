package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/deckforge/api/internal/brand"
	"github.com/deckforge/api/internal/graphics"
	"github.com/deckforge/api/internal/models"
	"github.com/deckforge/api/internal/prompts"
	"github.com/deckforge/api/internal/references"
	"github.com/deckforge/api/internal/textgen"
)

const brandPage = `<html><head><title>Acme Rockets | Launch</title>
<style>:root { --brand-primary: #E4572E; --brand-secondary: #17BEBB; --brand-accent: #FFC914; }</style>
</head><body>
<img class="logo" src="/img/logo.png">
<img src="/img/hero.jpg">
<img src="/img/launch.jpg">
</body></html>`

type fakeText struct {
	mu     sync.Mutex
	plan   string
	design string
	single string
	err    error
	calls  []textgen.Request
}

func (f *fakeText) Name() string { return "fake" }

func (f *fakeText) Complete(ctx context.Context, apiKey string, req textgen.Request) (*textgen.Completion, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var text string
	switch {
	case strings.Contains(req.System, "content strategist"):
		text = f.plan
	case strings.Contains(req.System, "visual designer"):
		text = f.design
	default:
		text = f.single
	}
	return &textgen.Completion{Text: text, Model: "fake-model", InputTokens: 100, OutputTokens: 50}, nil
}

type fakeImages struct {
	mu      sync.Mutex
	state   string
	submits []string
}

func (f *fakeImages) Submit(ctx context.Context, apiKey string, job graphics.ImageJob) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, job.Prompt)
	return fmt.Sprintf("job-%d", len(f.submits)), nil
}

func (f *fakeImages) Status(ctx context.Context, apiKey, jobID string) (*graphics.RemoteStatus, error) {
	st := &graphics.RemoteStatus{Status: f.state}
	if f.state == graphics.StatusComplete {
		st.ImageURLs = []string{"https://img.test/" + jobID}
	}
	return st, nil
}

type fakeIcons struct {
	mu      sync.Mutex
	prompts []string
	colors  []string
}

func (f *fakeIcons) Generate(ctx context.Context, apiKey string, req graphics.IconRequest) (*graphics.IconResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, req.Prompt)
	f.colors = append(f.colors, req.Color)
	return &graphics.IconResult{URL: "https://icons.test/" + req.Prompt + ".svg"}, nil
}

type pages map[string]string

func (p pages) Fetch(ctx context.Context, url string) ([]byte, error) {
	page, ok := p[url]
	if !ok {
		return nil, errors.New("HTTP 404")
	}
	return []byte(page), nil
}

// namedText serves as a specific provider in a multi-provider router.
type namedText struct {
	*fakeText
	name string
}

func (n namedText) Name() string { return n.name }

func newTestService(t *testing.T, text *fakeText, images *fakeImages, icons *fakeIcons) *Service {
	t.Helper()
	return newRoutedService(t, textgen.NewRouter("fake", text), images, icons)
}

func newRoutedService(t *testing.T, router *textgen.Router, images *fakeImages, icons *fakeIcons) *Service {
	t.Helper()
	lib, err := prompts.Load()
	require.NoError(t, err)

	fetch := pages{"https://acme.test": brandPage}
	opts := graphics.DefaultOptions()
	opts.PollInterval = time.Millisecond
	opts.MaxPolls = 3
	opts.RequestDelay = 0

	var imageSvc graphics.ImageService
	if images != nil {
		imageSvc = images
	}
	var iconSvc graphics.IconService
	if icons != nil {
		iconSvc = icons
	}

	return NewService(
		router,
		references.NewAggregator(fetch, 5000, zap.NewNop()),
		brand.NewExtractor(fetch, nil, time.Hour, zap.NewNop()),
		graphics.NewGenerator(imageSvc, iconSvc, opts, zap.NewNop()),
		lib,
		Options{Model: "test-model"},
		zap.NewNop(),
	)
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}

func acmePlan(n int) models.ContentPlan {
	plan := models.ContentPlan{DeckTitle: "Acme Rockets", DeckDescription: "Why Acme sells rockets"}
	for i := 1; i <= n; i++ {
		intent := models.IntentProblem
		switch i {
		case 1:
			intent = models.IntentTitle
		case n:
			intent = models.IntentCTA
		}
		plan.Slides = append(plan.Slides, models.ContentSlide{
			SlideNumber:    i,
			Message:        fmt.Sprintf("Message %d", i),
			SupportingText: fmt.Sprintf("Support %d", i),
			SlideIntent:    intent,
		})
	}
	return plan
}

var layoutCycle = []models.Layout{models.LayoutTitle, models.LayoutImageFocus, models.LayoutSplit, models.LayoutStats, models.LayoutContent}

func acmeDesign(n int) models.DesignPlan {
	var d models.DesignPlan
	for i := 1; i <= n; i++ {
		d.Slides = append(d.Slides, models.SlideDesign{
			SlideNumber: i,
			Layout:      layoutCycle[(i-1)%len(layoutCycle)],
			Background:  models.BackgroundGradient,
			VisualStrategy: models.VisualStrategy{
				Type:           "illustration",
				DetailedPrompt: fmt.Sprintf("rocket scene %d", i),
				Position:       "right",
			},
			Typography: models.Typography{
				Headline:          fmt.Sprintf("Headline %d", i),
				Subtext:           "Subtext",
				EmphasizedNumbers: []string{"42%", "3x"},
			},
			ColorScheme: models.ColorScheme{Primary: "#112233", Accent: "#445566", Background: "#fafafa"},
		})
	}
	return d
}

func TestGenerateMultiPhaseAcme(t *testing.T) {
	plan, design := acmePlan(9), acmeDesign(9)
	text := &fakeText{
		plan:   "Here is the plan:\n" + mustJSON(t, plan),
		design: mustJSON(t, design) + "\nLet me know if you need changes.",
	}
	images := &fakeImages{state: graphics.StatusComplete}
	svc := newTestService(t, text, images, nil)

	var stages []string
	deck, report, err := svc.Generate(context.Background(),
		Credentials{TextAPIKey: "tk", ImageAPIKey: "ik"},
		models.GenerationRequest{Content: "Acme Corp sells rockets", MultiPhase: true},
		func(stage string) { stages = append(stages, stage) })
	require.NoError(t, err)

	require.Len(t, text.calls, 2)
	assert.Equal(t, "Content:\nAcme Corp sells rockets", text.calls[0].User)
	assert.Equal(t, "test-model", text.calls[0].Model)
	assert.Contains(t, text.calls[1].User, "Message 9")

	assert.Equal(t, "Acme Rockets", deck.Name)
	require.Len(t, deck.Slides, 9)
	for i, s := range deck.Slides {
		assert.Equal(t, fmt.Sprintf("slide-%d", i+1), s.ID)
		assert.Equal(t, fmt.Sprintf("Headline %d", i+1), s.Title)
		assert.NotEmpty(t, s.ImageURL, "slide %d", i+1)
		assert.Empty(t, s.FallbackURL)
	}
	assert.Equal(t, models.Palette{
		Primary: "#112233", Secondary: "#445566", Accent: "#445566", Background: "#fafafa", Text: "#1f2937",
	}, deck.Theme.Colors)
	assert.Equal(t, "Inter", deck.Theme.FontFamily)
	assert.Empty(t, deck.Logo)

	assert.Len(t, images.submits, 9)
	assert.Equal(t, "multi-phase", report.Mode)
	assert.Equal(t, 9, report.SlideCount)
	assert.Equal(t, 9, report.ImagesRequested)
	assert.Equal(t, 9, report.ImagesProduced)
	assert.Equal(t, 200, report.InputTokens)
	assert.Equal(t, []string{
		models.StagePreparing, models.StageContentStrategy, models.StageVisualDesign,
		models.StageGraphics, models.StageAssembly,
	}, stages)
}

func TestGenerateMultiPhaseFailedImagesUseBrandFallback(t *testing.T) {
	text := &fakeText{plan: mustJSON(t, acmePlan(8)), design: mustJSON(t, acmeDesign(8))}
	images := &fakeImages{state: graphics.StatusFailed}
	svc := newTestService(t, text, images, nil)

	deck, report, err := svc.Generate(context.Background(),
		Credentials{TextAPIKey: "tk", ImageAPIKey: "ik"},
		models.GenerationRequest{Content: "Acme Corp sells rockets", BrandURL: "https://acme.test", MultiPhase: true}, nil)
	require.NoError(t, err)

	assets, err := brand.ExtractFromHTML([]byte(brandPage), "https://acme.test")
	require.NoError(t, err)
	require.Len(t, assets.Images, 2)

	assert.Contains(t, text.calls[1].System, "primary #e4572e")
	assert.Contains(t, text.calls[0].User, "Brand assets:")
	for i, s := range deck.Slides {
		assert.Empty(t, s.ImageURL)
		assert.Equal(t, assets.Images[i%2], s.FallbackURL)
	}
	assert.Equal(t, assets.Colors, deck.Theme.Colors)
	assert.Equal(t, assets.Logo, deck.Logo)
	assert.Equal(t, 0, report.ImagesProduced)
}

func TestGenerateMultiPhaseMisalignedDesign(t *testing.T) {
	text := &fakeText{plan: mustJSON(t, acmePlan(9)), design: mustJSON(t, acmeDesign(8))}
	svc := newTestService(t, text, &fakeImages{state: graphics.StatusComplete}, nil)

	_, _, err := svc.Generate(context.Background(), Credentials{TextAPIKey: "tk"},
		models.GenerationRequest{Content: "x", MultiPhase: true}, nil)

	var align *AlignmentError
	require.ErrorAs(t, err, &align)
	assert.Equal(t, PhaseVisualDesign, FailedPhase(err))
}

func TestGenerateRequiresTextKey(t *testing.T) {
	text := &fakeText{}
	svc := newTestService(t, text, nil, nil)

	_, _, err := svc.Generate(context.Background(), Credentials{}, models.GenerationRequest{Content: "x"}, nil)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Empty(t, text.calls)

	_, _, err = svc.Generate(context.Background(), Credentials{TextAPIKey: "k"}, models.GenerationRequest{}, nil)
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestGenerateWrapsUpstreamErrorWithPhase(t *testing.T) {
	text := &fakeText{err: &textgen.UpstreamError{Service: "text-generation", StatusCode: 401, Message: "invalid x-api-key"}}
	svc := newTestService(t, text, nil, nil)

	_, _, err := svc.Generate(context.Background(), Credentials{TextAPIKey: "bad"},
		models.GenerationRequest{Content: "x", MultiPhase: true}, nil)

	assert.Equal(t, textgen.CategoryAuth, textgen.CategoryOf(err))
	assert.Equal(t, PhaseContentStrategy, FailedPhase(err))
}

func TestStrategizeParseError(t *testing.T) {
	text := &fakeText{plan: "Sorry, I cannot help with that."}
	svc := newTestService(t, text, nil, nil)

	_, _, err := svc.Strategize(context.Background(), Credentials{TextAPIKey: "k"}, StrategyInput{Content: "x"})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Sorry, I cannot help with that.", perr.Raw)
	assert.Equal(t, PhaseContentStrategy, perr.Phase)
}

func TestStrategizeRenumbersSlides(t *testing.T) {
	plan := acmePlan(3)
	plan.Slides[0].SlideNumber = 0
	plan.Slides[1].SlideNumber = 5
	plan.Slides[2].SlideNumber = 5
	svc := newTestService(t, &fakeText{plan: mustJSON(t, plan)}, nil, nil)

	got, usage, err := svc.Strategize(context.Background(), Credentials{TextAPIKey: "k"}, StrategyInput{Content: "x"})
	require.NoError(t, err)
	for i, s := range got.Slides {
		assert.Equal(t, i+1, s.SlideNumber)
	}
	assert.Equal(t, 100, usage.InputTokens)
}

func TestConfiguredModelOnlyGoesToDefaultProvider(t *testing.T) {
	plan := mustJSON(t, acmePlan(8))
	anthropic := &fakeText{plan: plan}
	openai := &fakeText{plan: plan}
	router := textgen.NewRouter("anthropic",
		namedText{fakeText: anthropic, name: "anthropic"},
		namedText{fakeText: openai, name: "openai"},
	)
	svc := newRoutedService(t, router, nil, nil)
	ctx := context.Background()

	_, _, err := svc.Strategize(ctx, Credentials{TextAPIKey: "k", TextProvider: "openai"}, StrategyInput{Content: "x"})
	require.NoError(t, err)
	require.Len(t, openai.calls, 1)
	assert.Empty(t, openai.calls[0].Model)

	for _, provider := range []string{"anthropic", "", "unknown"} {
		_, _, err := svc.Strategize(ctx, Credentials{TextAPIKey: "k", TextProvider: provider}, StrategyInput{Content: "x"})
		require.NoError(t, err)
	}
	require.Len(t, anthropic.calls, 3)
	for _, call := range anthropic.calls {
		assert.Equal(t, "test-model", call.Model)
	}
}

func TestAssembleReconcilesBySlideNumber(t *testing.T) {
	plan, design := acmePlan(5), acmeDesign(5)
	for i, j := 0, len(design.Slides)-1; i < j; i, j = i+1, j-1 {
		design.Slides[i], design.Slides[j] = design.Slides[j], design.Slides[i]
	}
	gfx := &models.GraphicsResult{Slides: []models.SlideGraphics{{SlideNumber: 3, ImageURL: "https://img.test/3"}}}

	deck, err := Assemble(AssemblyInput{Plan: &plan, Design: &design, Graphics: gfx})
	require.NoError(t, err)

	for i, s := range deck.Slides {
		assert.Equal(t, fmt.Sprintf("Headline %d", i+1), s.Title)
		assert.Equal(t, layoutCycle[i], s.Type)
	}
	assert.Equal(t, "https://img.test/3", deck.Slides[2].ImageURL)
	assert.Empty(t, deck.Slides[0].ImageURL)
}

func TestAssembleRejectsMisalignedRecords(t *testing.T) {
	plan := acmePlan(3)

	dup := acmeDesign(3)
	dup.Slides[2].SlideNumber = 2
	_, err := Assemble(AssemblyInput{Plan: &plan, Design: &dup})
	var align *AlignmentError
	assert.ErrorAs(t, err, &align)

	gap := acmeDesign(3)
	gap.Slides[2].SlideNumber = 7
	_, err = Assemble(AssemblyInput{Plan: &plan, Design: &gap})
	assert.ErrorAs(t, err, &align)

	design := acmeDesign(3)
	stray := &models.GraphicsResult{Slides: []models.SlideGraphics{{SlideNumber: 9}}}
	_, err = Assemble(AssemblyInput{Plan: &plan, Design: &design, Graphics: stray})
	assert.ErrorAs(t, err, &align)
}

func TestAssembleIsDeterministic(t *testing.T) {
	plan, design := acmePlan(9), acmeDesign(9)
	gfx := &models.GraphicsResult{Slides: []models.SlideGraphics{{SlideNumber: 1, ImageURL: "u"}}}
	in := AssemblyInput{Plan: &plan, Design: &design, Graphics: gfx, Logo: "logo.png"}

	a, err := Assemble(in)
	require.NoError(t, err)
	b, err := Assemble(in)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAssembleLayoutFields(t *testing.T) {
	plan, design := acmePlan(5), acmeDesign(5)
	plan.Slides[4].DataPoints = []string{"Fast", "Cheap"}
	design.Slides[4].Typography.Headline = ""
	design.Slides[1].Layout = "carousel"
	design.Slides[1].Background = ""

	deck, err := Assemble(AssemblyInput{Plan: &plan, Design: &design})
	require.NoError(t, err)
	s := deck.Slides

	assert.Equal(t, "Subtext", s[0].Subtitle)

	assert.Equal(t, models.LayoutContent, s[1].Type)
	assert.Equal(t, models.BackgroundGradient, s[1].Background)
	assert.Equal(t, models.Bullets{"Support 2"}, s[1].Content)

	assert.Equal(t, "Support 3", s[2].LeftContent)

	assert.Equal(t, "42%", s[3].MainStat)
	assert.Equal(t, "Subtext", s[3].StatLabel)
	assert.Equal(t, []string{"3x"}, s[3].SupportingStats)

	assert.Equal(t, "Message 5", s[4].Title)
	assert.Equal(t, models.Bullets{"Fast", "Cheap"}, s[4].Content)
	require.NotNil(t, s[4].Graphic)
	assert.Equal(t, "rocket scene 5", s[4].Graphic.Prompt)
}

func TestSinglePhaseStrictRemovesInventedGraphics(t *testing.T) {
	single := `{"name":"Launch","slides":[
		{"type":"image-focus","title":"Launch","content":"We launch","graphic":{"type":"image","prompt":"a red rocket on a pad"}},
		{"type":"content","title":"Pricing","content":["Cheap","Fast"],"graphic":{"type":"icon","prompt":"a price tag"}}
	]}`
	text := &fakeText{single: single}
	images := &fakeImages{state: graphics.StatusComplete}
	icons := &fakeIcons{}
	svc := newTestService(t, text, images, icons)

	deck, report, err := svc.Generate(context.Background(),
		Credentials{TextAPIKey: "tk", ImageAPIKey: "ik", IconAPIKey: "ck"},
		models.GenerationRequest{
			Content:   "Slide 1: Launch\nGraphic: a red rocket on a pad\nSlide 2: Pricing",
			BuildOnly: true,
		}, nil)
	require.NoError(t, err)

	require.Len(t, text.calls, 1)
	assert.Contains(t, text.calls[0].System, "Never invent graphics")
	assert.Equal(t, "strict", report.Mode)

	require.Len(t, deck.Slides, 2)
	assert.Equal(t, []string{"a red rocket on a pad"}, images.submits)
	assert.Equal(t, "https://img.test/job-1", deck.Slides[0].ImageURL)
	assert.Equal(t, models.Bullets{"We launch"}, deck.Slides[0].Content)
	assert.Nil(t, deck.Slides[1].Graphic)
	assert.Empty(t, deck.Slides[1].IconURL)
	assert.Empty(t, icons.prompts)
	assert.Equal(t, models.DefaultPalette(), deck.Theme.Colors)
}

func TestSinglePhaseCreativeWithBrand(t *testing.T) {
	single := `Sure! {"name":"","slides":[
		{"type":"title","title":"Acme"},
		{"type":"content","title":"Ideas","content":["One"],"graphic":{"type":"icon","prompt":"lightbulb"}},
		{"type":"image-focus","title":"Hero","imageUrl":"https://acme.test/img/hero.jpg","graphic":{"type":"image","prompt":"rocket"}},
		{"type":"split","title":"Compare","leftContent":"Old vs new","graphic":{"type":"image","prompt":"two rockets"}}
	],"theme":{"colors":{"primary":"#000001"}}}`
	text := &fakeText{single: single}
	images := &fakeImages{state: graphics.StatusComplete}
	icons := &fakeIcons{}
	svc := newTestService(t, text, images, icons)

	deck, report, err := svc.Generate(context.Background(),
		Credentials{TextAPIKey: "tk", ImageAPIKey: "ik", IconAPIKey: "ck"},
		models.GenerationRequest{Content: "Acme Corp sells rockets", BrandURL: "https://acme.test", FillMissingGraphics: true}, nil)
	require.NoError(t, err)

	assets, err := brand.ExtractFromHTML([]byte(brandPage), "https://acme.test")
	require.NoError(t, err)

	assert.Equal(t, "creative", report.Mode)
	assert.Contains(t, text.calls[0].System, "for Acme Rockets")
	assert.Equal(t, DefaultDeckName, deck.Name)

	ids := map[string]bool{}
	for _, s := range deck.Slides {
		assert.NotEmpty(t, s.ID)
		ids[s.ID] = true
	}
	assert.Len(t, ids, 4)

	assert.Equal(t, "https://icons.test/lightbulb.svg", deck.Slides[1].IconURL)
	assert.Equal(t, "https://acme.test/img/hero.jpg", deck.Slides[2].ImageURL)
	assert.Equal(t, "https://img.test/job-1", deck.Slides[3].ImageURL)
	assert.Equal(t, []string{"two rockets"}, images.submits)
	assert.Equal(t, 1, report.IconsProduced)

	assert.Equal(t, assets.Colors, deck.Theme.Colors)
	assert.Equal(t, []string{assets.Colors.Primary}, icons.colors, "icons are tinted with the brand primary, not the model palette")
	assert.NotEqual(t, "#000001", assets.Colors.Primary)
	assert.Equal(t, "Inter", deck.Theme.FontFamily)
	assert.Equal(t, assets.Logo, deck.Logo)
}

func TestSinglePhaseWithoutImageKeyKeepsGraphicsUnfilled(t *testing.T) {
	text := &fakeText{single: `{"name":"D","slides":[{"type":"split","title":"A","graphic":{"type":"image","prompt":"p"}}]}`}
	images := &fakeImages{state: graphics.StatusComplete}
	svc := newTestService(t, text, images, nil)

	deck, _, err := svc.Generate(context.Background(), Credentials{TextAPIKey: "tk"},
		models.GenerationRequest{Content: "x"}, nil)
	require.NoError(t, err)
	assert.Empty(t, deck.Slides[0].ImageURL)
	assert.Empty(t, images.submits)
	require.NotNil(t, deck.Slides[0].Graphic)
}

func TestNormalizeTheme(t *testing.T) {
	assert.Equal(t, models.Theme{Colors: models.DefaultPalette(), FontFamily: "Inter"}, normalizeTheme(nil))

	got := normalizeTheme(&models.Theme{Colors: models.Palette{Primary: "#123456"}, FontFamily: "Roboto"})
	assert.Equal(t, "#123456", got.Colors.Primary)
	assert.Equal(t, models.DefaultPalette().Text, got.Colors.Text)
	assert.Equal(t, "Roboto", got.FontFamily)
}
