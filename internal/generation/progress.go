package generation

import (
	"math"

	"golang.org/x/text/language"

	"server/internal/domain"
)

// Stage labels the coarse phase reported alongside the overall percentage.
type Stage string

const (
	StageIdle         Stage = "idle"
	StageInitializing Stage = "initializing"
	StageGenerating   Stage = "generating"
	StageFinalizing   Stage = "finalizing"
	StageComplete     Stage = "complete"
)

// Bands holds the percentage boundaries between stages. They are product
// configuration, not constants: below Start the run reports initializing,
// at or above Wrapup it reports finalizing.
type Bands struct {
	Start  int
	Wrapup int
}

// DefaultBands mirrors the product defaults.
func DefaultBands() Bands {
	return Bands{Start: 15, Wrapup: 85}
}

// AggregatedProgress is the single progress signal combining both tracks.
// It is recomputed from the two most recent statuses on every call and never
// persisted.
type AggregatedProgress struct {
	Overall int    `json:"overall"`
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
}

// Aggregator merges the skybox and mesh tracks into one completion signal
// with a human-readable, localized stage message.
type Aggregator struct {
	bands   Bands
	matcher language.Matcher
}

var supportedLocales = []language.Tag{
	language.English,
	language.Indonesian,
}

func NewAggregator(bands Bands) *Aggregator {
	if bands.Start <= 0 && bands.Wrapup <= 0 {
		bands = DefaultBands()
	}
	return &Aggregator{
		bands:   bands,
		matcher: language.NewMatcher(supportedLocales),
	}
}

// Aggregate combines the current status of each active track. Both tracks
// active: rounded arithmetic mean. One track: passthrough. None: zero. The
// result is a deterministic function of its inputs, so monotone track
// progress yields monotone aggregate progress.
func (a *Aggregator) Aggregate(skybox, mesh *domain.JobStatus, locale string) AggregatedProgress {
	overall := 0
	switch {
	case skybox != nil && mesh != nil:
		overall = int(math.Round(float64(trackProgress(skybox)+trackProgress(mesh)) / 2))
	case skybox != nil:
		overall = trackProgress(skybox)
	case mesh != nil:
		overall = trackProgress(mesh)
	}
	stage := a.stageFor(skybox, mesh, overall)
	return AggregatedProgress{
		Overall: overall,
		Stage:   stage,
		Message: a.message(stage, skybox != nil, mesh != nil, locale),
	}
}

func trackProgress(status *domain.JobStatus) int {
	if status.State == domain.StateCompleted {
		return 100
	}
	return domain.ClampProgress(status.Progress)
}

func (a *Aggregator) stageFor(skybox, mesh *domain.JobStatus, overall int) Stage {
	if skybox == nil && mesh == nil {
		return StageIdle
	}
	if allTerminalComplete(skybox, mesh) {
		return StageComplete
	}
	switch {
	case overall < a.bands.Start:
		return StageInitializing
	case overall >= a.bands.Wrapup:
		return StageFinalizing
	default:
		return StageGenerating
	}
}

func allTerminalComplete(tracks ...*domain.JobStatus) bool {
	for _, track := range tracks {
		if track != nil && track.State != domain.StateCompleted {
			return false
		}
	}
	return true
}

func (a *Aggregator) message(stage Stage, skybox, mesh bool, locale string) string {
	tag, _ := language.MatchStrings(a.matcher, locale)
	base, _ := tag.Base()
	catalog, ok := stageMessages[base.String()]
	if !ok {
		catalog = stageMessages["en"]
	}
	if stage == StageGenerating {
		switch {
		case skybox && mesh:
			return catalog.generatingBoth
		case mesh:
			return catalog.generatingMesh
		default:
			return catalog.generatingSkybox
		}
	}
	switch stage {
	case StageInitializing:
		return catalog.initializing
	case StageFinalizing:
		return catalog.finalizing
	case StageComplete:
		return catalog.complete
	default:
		return catalog.idle
	}
}

type stageCatalog struct {
	idle             string
	initializing     string
	generatingSkybox string
	generatingMesh   string
	generatingBoth   string
	finalizing       string
	complete         string
}

var stageMessages = map[string]stageCatalog{
	"en": {
		idle:             "Waiting to start",
		initializing:     "Initializing generation",
		generatingSkybox: "Generating 360° skybox",
		generatingMesh:   "Generating 3D mesh",
		generatingBoth:   "Generating immersive scene",
		finalizing:       "Finalizing assets",
		complete:         "Generation complete",
	},
	"id": {
		idle:             "Menunggu untuk mulai",
		initializing:     "Menyiapkan proses generasi",
		generatingSkybox: "Membuat skybox 360°",
		generatingMesh:   "Membuat model 3D",
		generatingBoth:   "Membuat adegan imersif",
		finalizing:       "Menyelesaikan aset",
		complete:         "Generasi selesai",
	},
}
