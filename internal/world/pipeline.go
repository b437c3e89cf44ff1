package world

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Faultbox/liberty3/pkg/formats"
)

// ErrLoadAfterResolve is returned when LoadAll is called on a pipeline
// whose resolve phase already ran. The registry is read-only by then.
var ErrLoadAfterResolve = errors.New("load phase is closed after resolution")

// InputKind tells the load phase which parser an input goes through.
type InputKind int

// Input kinds.
const (
	InputModel       InputKind = iota // model clump data
	InputTextureDict                  // texture dictionary data
	InputCollision                    // collision archive data
	InputDefinition                   // item definition text
	InputPlacement                    // item placement text
)

// String returns a human-readable input kind name.
func (k InputKind) String() string {
	switch k {
	case InputModel:
		return "Model"
	case InputTextureDict:
		return "TextureDict"
	case InputCollision:
		return "Collision"
	case InputDefinition:
		return "Definition"
	case InputPlacement:
		return "Placement"
	default:
		return fmt.Sprintf("Unknown(%d)", int(k))
	}
}

// KindForPath guesses an input kind from a file extension. It returns
// false for files the pipeline does not consume.
func KindForPath(path string) (InputKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".dff":
		return InputModel, true
	case ".txd":
		return InputTextureDict, true
	case ".col":
		return InputCollision, true
	case ".ide":
		return InputDefinition, true
	case ".ipl":
		return InputPlacement, true
	default:
		return 0, false
	}
}

// Input is one raw resource handed to the load phase. Name is the
// file name the resource came under; for models and dictionaries the
// registry key is its base name without extension.
type Input struct {
	Name string
	Kind InputKind
	Data []byte
}

// FileError records one input that failed to decode. Decode failures
// never abort the load phase; they accumulate here so a single corrupt
// archive member cannot take down the whole world build.
type FileError struct {
	Name string
	Kind InputKind
	Err  error
}

// Error implements the error interface.
func (e FileError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Kind, e.Name, e.Err)
}

// Unwrap returns the underlying decode error.
func (e FileError) Unwrap() error {
	return e.Err
}

// Pipeline runs the two-phase world build: a parallel load phase that
// decodes raw inputs into the registry, then a parallel resolve phase
// that joins placements against the settled registry. LoadAll may be
// called repeatedly (one call per archive, say) until Resolve runs.
type Pipeline struct {
	registry *Registry
	log      *zap.Logger
	workers  int
	runID    string

	mu         sync.Mutex
	placements []formats.Placement
	fileErrors []FileError
	resolved   bool
}

// NewPipeline creates a pipeline with its own empty registry. A
// workers value below 1 disables the concurrency limit.
func NewPipeline(log *zap.Logger, workers int) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	runID := uuid.NewString()
	return &Pipeline{
		registry: NewRegistry(),
		log:      log.With(zap.String("run_id", runID)),
		workers:  workers,
		runID:    runID,
	}
}

// RunID returns the identifier tagged on this pipeline's log entries.
func (p *Pipeline) RunID() string {
	return p.runID
}

// Registry exposes the pipeline's registry, mainly for inspection and
// tests. Callers must not write to it after Resolve.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// Errors returns the decode failures accumulated so far, in no
// particular order.
func (p *Pipeline) Errors() []FileError {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]FileError, len(p.fileErrors))
	copy(out, p.fileErrors)
	return out
}

// PlacementCount returns the number of placements loaded so far.
func (p *Pipeline) PlacementCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.placements)
}

// LoadAll decodes the inputs concurrently and registers the results.
// Inputs that fail to decode are recorded as FileErrors and skipped;
// the only error returns are context cancellation and calling LoadAll
// after Resolve. Placements keep the order of the inputs slice, with
// lines in file order inside each input.
func (p *Pipeline) LoadAll(ctx context.Context, inputs []Input) error {
	p.mu.Lock()
	if p.resolved {
		p.mu.Unlock()
		return ErrLoadAfterResolve
	}
	p.mu.Unlock()

	g, ctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}

	// Placement files decode in parallel but merge in input order, so
	// that later placements deterministically shadow earlier ones.
	placements := make([][]formats.Placement, len(inputs))

	for i := range inputs {
		in := &inputs[i]
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			batch, err := p.loadOne(in)
			if err != nil {
				p.log.Warn("skipping undecodable input",
					zap.String("name", in.Name),
					zap.Stringer("kind", in.Kind),
					zap.Error(err))
				p.mu.Lock()
				p.fileErrors = append(p.fileErrors, FileError{Name: in.Name, Kind: in.Kind, Err: err})
				p.mu.Unlock()
				return nil
			}
			placements[idx] = batch
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	p.mu.Lock()
	for _, batch := range placements {
		p.placements = append(p.placements, batch...)
	}
	p.mu.Unlock()
	return nil
}

// loadOne decodes a single input into the registry. Only placement
// inputs return records; everything else registers directly.
func (p *Pipeline) loadOne(in *Input) ([]formats.Placement, error) {
	switch in.Kind {
	case InputModel:
		clump, err := formats.ParseDFF(in.Data)
		if err != nil {
			return nil, err
		}
		p.registry.Put(KindModel, baseName(in.Name), clump)

	case InputTextureDict:
		dict, err := formats.ParseTXD(in.Data)
		if err != nil {
			return nil, err
		}
		p.registry.Put(KindTextureDict, baseName(in.Name), dict)

	case InputCollision:
		records, err := formats.ParseCOL(in.Data)
		if err != nil {
			return nil, err
		}
		for i := range records {
			p.registry.Put(KindCollision, records[i].Name, &records[i])
		}

	case InputDefinition:
		ide, err := formats.ParseIDE(string(in.Data))
		if err != nil {
			return nil, err
		}
		for i := range ide.Objects {
			p.registry.Put(KindDefinition, ide.Objects[i].ModelName, &ide.Objects[i])
		}

	case InputPlacement:
		ipl, err := formats.ParseIPL(string(in.Data))
		if err != nil {
			return nil, err
		}
		return ipl.Placements, nil

	default:
		return nil, fmt.Errorf("unknown input kind %d", int(in.Kind))
	}
	return nil, nil
}

// Resolve closes the load phase and joins every loaded placement
// against the registry. Entities come back in placement order;
// diagnostics carry every dropped or degraded placement. A zero
// lodCutoff selects DefaultLODCutoff.
func (p *Pipeline) Resolve(ctx context.Context, lodCutoff float32) ([]Entity, []Diagnostic, error) {
	p.mu.Lock()
	p.resolved = true
	placements := p.placements
	p.mu.Unlock()

	resolver := NewResolver(p.registry, p.log, lodCutoff)

	g, ctx := errgroup.WithContext(ctx)
	if p.workers > 0 {
		g.SetLimit(p.workers)
	}

	// Indexed result slots keep placement order without a merge step.
	results := make([]*Entity, len(placements))
	diagSlots := make([][]Diagnostic, len(placements))

	for i := range placements {
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[idx], diagSlots[idx] = resolver.Resolve(&placements[idx])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	entities := make([]Entity, 0, len(placements))
	var diags []Diagnostic
	for i := range results {
		if results[i] != nil {
			entities = append(entities, *results[i])
		}
		diags = append(diags, diagSlots[i]...)
	}

	p.log.Info("resolution finished",
		zap.Int("placements", len(placements)),
		zap.Int("entities", len(entities)),
		zap.Int("diagnostics", len(diags)))

	return entities, diags, nil
}

// baseName strips directory and extension from a resource file name.
func baseName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, filepath.Ext(base))
}
