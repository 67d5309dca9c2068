package phase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/san-kum/phaseplane/internal/analysis"
	"github.com/san-kum/phaseplane/internal/config"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/field"
	"github.com/san-kum/phaseplane/internal/integrators"
	"github.com/san-kum/phaseplane/internal/nullcline"
	"github.com/san-kum/phaseplane/internal/trajectory"
)

var ErrInvalidSeed = errors.New("phase: seed must be finite")

type State int

const (
	Uninitialized State = iota
	Ready
	Stale
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Ready:
		return "ready"
	case Stale:
		return "stale"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Observer is called after every state transition with none of the
// model's locks held, so it may call back into the model. While the model
// is Stale every writer fails with dynamo.ErrNotReady; after the return to
// Ready all methods are available.
type Observer func(from, to State)

type Option func(*Model)

func WithResolution(res field.Resolution) Option {
	return func(m *Model) { m.settings.resolution = res }
}

func WithExpansion(expansion float64) Option {
	return func(m *Model) { m.settings.expansion = expansion }
}

func WithNullclineResolution(n int) Option {
	return func(m *Model) { m.settings.nullclineRes = n }
}

func WithMethod(name string) Option {
	return func(m *Model) { m.settings.method = name }
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Model) { m.logger = logger }
}

func WithObserver(o Observer) Option {
	return func(m *Model) { m.observers = append(m.observers, o) }
}

type settings struct {
	resolution   field.Resolution
	expansion    float64
	nullclineRes int
	method       string
}

func (s settings) validate() error {
	if err := s.resolution.Validate(); err != nil {
		return err
	}
	if !(s.expansion > 0) {
		return fmt.Errorf("%w: quiver expansion must be positive, got %g", dynamo.ErrInvalidResolution, s.expansion)
	}
	if s.nullclineRes < 2 {
		return fmt.Errorf("%w: nullcline resolution must be at least 2, got %d", dynamo.ErrInvalidResolution, s.nullclineRes)
	}
	if _, err := integrators.New(s.method); err != nil {
		return err
	}
	return nil
}

type seedKey [2]float64

func keyOf(seed dynamo.State) seedKey {
	var k seedKey
	copy(k[:], seed)
	return k
}

// Model is the phase space of one system over one axes window. It owns
// the sampled field, the trajectories seeded by the caller and, when
// enabled, the nullclines. Every derived artifact is rebuilt from scratch
// when the system or window changes.
type Model struct {
	// update serializes writers so a rebuild never interleaves with
	// another rebuild.
	update sync.Mutex
	mu     sync.RWMutex

	state      State
	generation int
	sys        *equations.System
	window     dynamo.Window
	bounds     dynamo.TimeBounds
	settings   settings

	grid           *field.Grid
	pairs          map[seedKey]*dynamo.Pair
	order          []seedKey
	showNullclines bool
	nullclines     nullcline.Result
	fixedPoints    []analysis.FixedPoint
	fixedDone      bool

	logger    *log.Logger
	observers []Observer
}

// New validates the configuration, samples the initial field and returns
// a Ready model. Trajectories and nullclines are computed on demand.
func New(sys *equations.System, window dynamo.Window, bounds dynamo.TimeBounds, opts ...Option) (*Model, error) {
	m := &Model{
		settings: settings{
			resolution:   field.DefaultResolution,
			expansion:    field.DefaultExpansion,
			nullclineRes: nullcline.DefaultResolution,
			method:       integrators.Default,
		},
		pairs: make(map[seedKey]*dynamo.Pair),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.New(io.Discard)
	}

	if sys == nil {
		return nil, errors.New("phase: nil system")
	}
	if err := m.settings.validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}

	grid, err := m.sample(sys, window, m.settings)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sys, m.window, m.bounds, m.grid = sys, window, bounds, grid
	m.state = Ready
	m.mu.Unlock()

	m.notify(Uninitialized, Ready)
	return m, nil
}

// FromConfig builds a model from a configuration record and integrates its
// seeds.
func FromConfig(cfg *config.Config, opts ...Option) (*Model, error) {
	setup, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	opts = append([]Option{
		WithResolution(cfg.Resolution),
		WithExpansion(cfg.QuiverExpansion),
		WithNullclineResolution(cfg.NullclineResolution),
		WithMethod(cfg.Method),
	}, opts...)

	m, err := New(setup.System, setup.Window, setup.Bounds, opts...)
	if err != nil {
		return nil, err
	}
	if cfg.Nullclines {
		if err := m.ToggleNullclines(true); err != nil {
			return nil, err
		}
	}
	if err := m.AddTrajectories(context.Background(), setup.Seeds); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) notify(from, to State) {
	m.logger.Debug("state transition", "from", from, "to", to)
	for _, o := range m.observers {
		o(from, to)
	}
}

func (m *Model) sample(sys *equations.System, window dynamo.Window, s settings) (*field.Grid, error) {
	start := time.Now()
	grid, err := field.Sample(sys, window, s.resolution, s.expansion)
	if err != nil {
		return nil, err
	}
	m.logger.Debug("field sampled", "points", grid.Len(), "valid", grid.ValidCount(), "elapsed", time.Since(start))
	return grid, nil
}

func (m *Model) findNullclines(sys *equations.System, window dynamo.Window, res int) (nullcline.Result, error) {
	start := time.Now()
	nc, err := nullcline.Find(sys, window, res)
	if err != nil {
		return nil, err
	}
	curves := 0
	for _, set := range nc {
		curves += len(set.Curves)
	}
	m.logger.Debug("nullclines traced", "curves", curves, "elapsed", time.Since(start))
	return nc, nil
}

// UpdateSystem replaces the system and window. Invalid input is rejected
// before anything changes. Otherwise the model goes Stale, the field (and
// nullclines, if shown) are recomputed, every trajectory is dropped, and
// the model returns to Ready.
func (m *Model) UpdateSystem(sys *equations.System, window dynamo.Window) error {
	m.mu.RLock()
	s := m.settings
	m.mu.RUnlock()
	return m.rebuild(context.Background(), change{sys: sys, window: window, settings: s})
}

// ApplyConfig applies a whole configuration record as one update: the new
// field, nullclines and the record's seeds are all computed before the
// model commits any of them, so a failure leaves the model as it was.
func (m *Model) ApplyConfig(cfg *config.Config) error {
	setup, err := cfg.Build()
	if err != nil {
		return err
	}
	return m.rebuild(context.Background(), change{
		sys:    setup.System,
		window: setup.Window,
		bounds: &setup.Bounds,
		settings: settings{
			resolution:   cfg.Resolution,
			expansion:    cfg.QuiverExpansion,
			nullclineRes: cfg.NullclineResolution,
			method:       cfg.Method,
		},
		nullclines: cfg.Nullclines,
		seeds:      setup.Seeds,
	})
}

// change is one system update. A nil bounds keeps the current ones;
// nullclines turns them on in addition to whatever is shown now.
type change struct {
	sys        *equations.System
	window     dynamo.Window
	bounds     *dynamo.TimeBounds
	settings   settings
	nullclines bool
	seeds      []dynamo.State
}

func (c change) validate() error {
	if c.sys == nil {
		return errors.New("phase: nil system")
	}
	if err := c.window.Validate(); err != nil {
		return err
	}
	if c.bounds != nil {
		if err := c.bounds.Validate(); err != nil {
			return err
		}
	}
	if err := c.settings.validate(); err != nil {
		return err
	}
	for _, seed := range c.seeds {
		if !seed.IsValid() {
			return ErrInvalidSeed
		}
		if len(seed) != c.sys.Dim() {
			return fmt.Errorf("%w: seed has %d components, system has %d", dynamo.ErrDimensionMismatch, len(seed), c.sys.Dim())
		}
	}
	return nil
}

// derived holds everything a change recomputes.
type derived struct {
	grid       *field.Grid
	nullclines nullcline.Result
	pairs      []*dynamo.Pair
}

func (m *Model) derive(ctx context.Context, c change, bounds dynamo.TimeBounds, withNullclines bool) (*derived, error) {
	grid, err := m.sample(c.sys, c.window, c.settings)
	if err != nil {
		return nil, err
	}
	d := &derived{grid: grid}
	if withNullclines {
		if d.nullclines, err = m.findNullclines(c.sys, c.window, c.settings.nullclineRes); err != nil {
			return nil, err
		}
	}
	if len(c.seeds) > 0 {
		w := c.window
		opts := trajectory.Options{Method: c.settings.method, Window: &w}
		if d.pairs, err = trajectory.IntegrateAll(ctx, c.sys, c.seeds, bounds, opts); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// checkReady runs before update is taken so that a writer called from an
// observer of the Ready -> Stale transition fails instead of blocking.
func (m *Model) checkReady() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.state != Ready {
		return fmt.Errorf("%w: model is %s", dynamo.ErrNotReady, m.state)
	}
	return nil
}

func (m *Model) rebuild(ctx context.Context, c change) error {
	if err := c.validate(); err != nil {
		return err
	}
	if err := m.checkReady(); err != nil {
		return err
	}

	m.update.Lock()
	m.mu.Lock()
	if m.state != Ready {
		m.mu.Unlock()
		m.update.Unlock()
		return fmt.Errorf("%w: model is %s", dynamo.ErrNotReady, m.state)
	}
	m.state = Stale
	withNullclines := m.showNullclines || c.nullclines
	bounds := m.bounds
	m.mu.Unlock()
	if c.bounds != nil {
		bounds = *c.bounds
	}
	m.notify(Ready, Stale)

	d, err := m.derive(ctx, c, bounds, withNullclines)
	if err != nil {
		m.mu.Lock()
		m.state = Ready
		m.mu.Unlock()
		m.update.Unlock()
		m.notify(Stale, Ready)
		return err
	}

	m.mu.Lock()
	dropped := len(m.order)
	m.sys, m.window, m.bounds, m.grid, m.settings = c.sys, c.window, bounds, d.grid, c.settings
	m.pairs = make(map[seedKey]*dynamo.Pair)
	m.order = nil
	for _, p := range d.pairs {
		m.store(p)
	}
	m.nullclines = d.nullclines
	if c.nullclines {
		m.showNullclines = true
	}
	m.fixedPoints, m.fixedDone = nil, false
	m.generation++
	m.state = Ready
	m.mu.Unlock()
	m.update.Unlock()

	m.logger.Debug("system updated", "system", c.sys.String(), "dropped_trajectories", dropped, "seeded", len(d.pairs))
	m.notify(Stale, Ready)
	return nil
}

// SetTimeBounds changes the integration limits and re-integrates every
// existing seed. Field and nullclines do not depend on time bounds and are
// kept.
func (m *Model) SetTimeBounds(bounds dynamo.TimeBounds) error {
	if err := bounds.Validate(); err != nil {
		return err
	}
	if err := m.checkReady(); err != nil {
		return err
	}

	m.update.Lock()
	defer m.update.Unlock()

	m.mu.RLock()
	sys, opts := m.sys, m.integrationOptions()
	seeds := make([]dynamo.State, len(m.order))
	for i, k := range m.order {
		seeds[i] = m.pairs[k].Seed
	}
	m.mu.RUnlock()

	pairs, err := trajectory.IntegrateAll(context.Background(), sys, seeds, bounds, opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.bounds = bounds
	kept := m.replacePairs(pairs)
	m.mu.Unlock()

	m.logger.Debug("time bounds updated", "t_f", bounds.Forward, "t_r", bounds.Reverse, "reintegrated", kept)
	return nil
}

// replacePairs swaps in re-integrated pairs for seeds that are still
// stored; seeds removed in the meantime stay removed. It must be called
// with mu held for writing.
func (m *Model) replacePairs(pairs []*dynamo.Pair) int {
	kept := 0
	for _, p := range pairs {
		k := keyOf(p.Seed)
		if _, ok := m.pairs[k]; !ok {
			continue
		}
		m.pairs[k] = p
		kept++
	}
	return kept
}

// integrationOptions must be called with mu held.
func (m *Model) integrationOptions() trajectory.Options {
	w := m.window
	return trajectory.Options{Method: m.settings.method, Window: &w}
}

// AddTrajectory integrates both branches from seed and stores them keyed
// by seed, replacing any earlier pair for the same seed. It fails with
// dynamo.ErrNotReady unless the model is Ready, and also when the system
// is replaced while the integration runs.
func (m *Model) AddTrajectory(seed dynamo.State) (*dynamo.Pair, error) {
	if !seed.IsValid() {
		return nil, ErrInvalidSeed
	}

	m.mu.RLock()
	if m.state != Ready {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: model is %s", dynamo.ErrNotReady, m.state)
	}
	sys, bounds, opts, gen := m.sys, m.bounds, m.integrationOptions(), m.generation
	m.mu.RUnlock()

	pair, err := trajectory.Integrate(sys, seed, bounds, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.generation != gen || m.state != Ready {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: system changed during integration", dynamo.ErrNotReady)
	}
	m.store(pair)
	m.mu.Unlock()

	m.logger.Debug("trajectory added",
		"seed", seed,
		"forward", pair.Forward.Termination, "forward_steps", pair.Forward.Stats.Steps,
		"backward", pair.Backward.Termination, "backward_steps", pair.Backward.Stats.Steps)
	return pair, nil
}

// AddTrajectories integrates several seeds concurrently.
func (m *Model) AddTrajectories(ctx context.Context, seeds []dynamo.State) error {
	if len(seeds) == 0 {
		return nil
	}
	for _, s := range seeds {
		if !s.IsValid() {
			return ErrInvalidSeed
		}
	}

	m.mu.RLock()
	if m.state != Ready {
		m.mu.RUnlock()
		return fmt.Errorf("%w: model is %s", dynamo.ErrNotReady, m.state)
	}
	sys, bounds, opts, gen := m.sys, m.bounds, m.integrationOptions(), m.generation
	m.mu.RUnlock()

	pairs, err := trajectory.IntegrateAll(ctx, sys, seeds, bounds, opts)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen || m.state != Ready {
		return fmt.Errorf("%w: system changed during integration", dynamo.ErrNotReady)
	}
	for _, p := range pairs {
		m.store(p)
	}
	m.logger.Debug("trajectories added", "count", len(pairs))
	return nil
}

// store must be called with mu held for writing.
func (m *Model) store(pair *dynamo.Pair) {
	k := keyOf(pair.Seed)
	if _, exists := m.pairs[k]; !exists {
		m.order = append(m.order, k)
	}
	m.pairs[k] = pair
}

func (m *Model) RemoveTrajectory(seed dynamo.State) bool {
	k := keyOf(seed)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.pairs[k]; !ok {
		return false
	}
	delete(m.pairs, k)
	for i, o := range m.order {
		if o == k {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Model) ClearTrajectories() {
	m.mu.Lock()
	m.pairs = make(map[seedKey]*dynamo.Pair)
	m.order = nil
	m.mu.Unlock()
}

// Trajectories returns the stored pairs in the order their seeds were
// first added.
func (m *Model) Trajectories() []*dynamo.Pair {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*dynamo.Pair, len(m.order))
	for i, k := range m.order {
		out[i] = m.pairs[k]
	}
	return out
}

// ToggleNullclines controls whether nullclines are exposed. Turning them on
// computes them if they are not cached and needs a Ready model; the field
// and trajectories are untouched either way.
func (m *Model) ToggleNullclines(on bool) error {
	m.mu.Lock()
	switch {
	case !on:
		m.showNullclines = false
		m.mu.Unlock()
		return nil
	case m.state != Ready:
		state := m.state
		m.mu.Unlock()
		return fmt.Errorf("%w: model is %s", dynamo.ErrNotReady, state)
	case m.nullclines != nil:
		m.showNullclines = true
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	m.update.Lock()
	defer m.update.Unlock()

	m.mu.RLock()
	sys, window, res, gen := m.sys, m.window, m.settings.nullclineRes, m.generation
	m.mu.RUnlock()

	nc, err := m.findNullclines(sys, window, res)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.generation != gen {
		return fmt.Errorf("%w: system changed while tracing nullclines", dynamo.ErrNotReady)
	}
	m.nullclines = nc
	m.showNullclines = true
	return nil
}

// Nullclines returns the cached curves when nullclines are toggled on.
func (m *Model) Nullclines() (nullcline.Result, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.showNullclines {
		return nil, false
	}
	return m.nullclines, true
}

func (m *Model) NullclinesShown() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.showNullclines
}

// FixedPoints returns the equilibria inside the window, computing them on
// first use after each system change.
func (m *Model) FixedPoints() ([]analysis.FixedPoint, error) {
	m.mu.RLock()
	if m.fixedDone {
		fps := m.fixedPoints
		m.mu.RUnlock()
		return fps, nil
	}
	if m.state != Ready {
		m.mu.RUnlock()
		return nil, fmt.Errorf("%w: model is %s", dynamo.ErrNotReady, m.state)
	}
	sys, window, gen := m.sys, m.window, m.generation
	m.mu.RUnlock()

	fps, err := analysis.FixedPoints(sys, window, analysis.Options{})
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.generation == gen {
		m.fixedPoints, m.fixedDone = fps, true
	}
	m.mu.Unlock()
	m.logger.Debug("fixed points found", "count", len(fps))
	return fps, nil
}

func (m *Model) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Model) Field() *field.Grid {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.grid
}

func (m *Model) System() *equations.System {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sys
}

func (m *Model) Window() dynamo.Window {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.window
}

func (m *Model) Bounds() dynamo.TimeBounds {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.bounds
}

func (m *Model) Method() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings.method
}

// Snapshot is a consistent, read-only view of the model at one moment.
// Nullclines is nil when they are hidden and FixedPoints is nil until
// FixedPoints has been called for the current system.
type Snapshot struct {
	State        State
	Coords       []string
	Exprs        []string
	Params       equations.ParameterSet
	Window       dynamo.Window
	Bounds       dynamo.TimeBounds
	Method       string
	Field        *field.Grid
	Trajectories []*dynamo.Pair
	Nullclines   nullcline.Result
	FixedPoints  []analysis.FixedPoint
}

func (m *Model) Snapshot() *Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := &Snapshot{
		State:        m.state,
		Coords:       m.sys.Coords(),
		Exprs:        m.sys.Exprs(),
		Params:       m.sys.Params(),
		Window:       m.window,
		Bounds:       m.bounds,
		Method:       m.settings.method,
		Field:        m.grid,
		Trajectories: make([]*dynamo.Pair, len(m.order)),
	}
	for i, k := range m.order {
		s.Trajectories[i] = m.pairs[k]
	}
	if m.showNullclines {
		s.Nullclines = m.nullclines
	}
	if m.fixedDone {
		s.FixedPoints = m.fixedPoints
	}
	return s
}

// Dim is the dimension of the snapshotted system.
func (s *Snapshot) Dim() int { return len(s.Coords) }

// AxisLabels names the two display axes. One-dimensional systems are drawn
// over (t, x).
func (s *Snapshot) AxisLabels() [2]string {
	if len(s.Coords) == 1 {
		return [2]string{"t", s.Coords[0]}
	}
	return [2]string{s.Coords[0], s.Coords[1]}
}
