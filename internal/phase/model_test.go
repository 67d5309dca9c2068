package phase_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/phaseplane/internal/analysis"
	"github.com/san-kum/phaseplane/internal/config"
	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/field"
	"github.com/san-kum/phaseplane/internal/phase"
)

type transition struct{ from, to phase.State }

func mustSystem(coords []string, exprs ...string) *equations.System {
	sys, err := equations.New(coords, exprs, nil)
	Expect(err).NotTo(HaveOccurred())
	return sys
}

var _ = Describe("Model", func() {
	var (
		center  *equations.System
		window  dynamo.Window
		bounds  dynamo.TimeBounds
		model   *phase.Model
		history []transition
	)

	BeforeEach(func() {
		center = mustSystem([]string{"x", "y"}, "y", "-x")
		window = dynamo.Window{{Min: -10, Max: 10}, {Min: -10, Max: 10}}
		bounds = dynamo.TimeBounds{Forward: 5, Reverse: -5}
		history = nil

		var err error
		model, err = phase.New(center, window, bounds,
			phase.WithObserver(func(from, to phase.State) {
				history = append(history, transition{from, to})
			}))
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("New", func() {
		It("starts Ready with a sampled field", func() {
			Expect(model.State()).To(Equal(phase.Ready))
			Expect(history).To(Equal([]transition{{phase.Uninitialized, phase.Ready}}))
			Expect(model.Field().Len()).To(Equal(400))
			Expect(model.Trajectories()).To(BeEmpty())
		})

		It("rejects invalid construction", func() {
			_, err := phase.New(nil, window, bounds)
			Expect(err).To(HaveOccurred())

			_, err = phase.New(center, window, bounds, phase.WithResolution(field.Resolution{NX: 1, NY: 20}))
			Expect(err).To(MatchError(dynamo.ErrInvalidResolution))

			_, err = phase.New(center, window, bounds, phase.WithNullclineResolution(1))
			Expect(err).To(MatchError(dynamo.ErrInvalidResolution))

			_, err = phase.New(center, window, bounds, phase.WithMethod("leapfrog"))
			Expect(err).To(HaveOccurred())

			_, err = phase.New(center, window, dynamo.TimeBounds{Forward: 1, Reverse: 1})
			Expect(err).To(MatchError(dynamo.ErrLimitMagnitude))

			bad := window
			bad[0] = dynamo.Interval{Min: 3, Max: -3}
			_, err = phase.New(center, bad, bounds)
			Expect(err).To(MatchError(dynamo.ErrLimitMagnitude))
		})
	})

	Describe("trajectories", func() {
		It("integrates both branches from a seed", func() {
			pair, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())

			Expect(pair.Forward.Termination).To(Equal(dynamo.Completed))
			Expect(pair.Backward.Termination).To(Equal(dynamo.Completed))
			Expect(pair.Forward.Times[pair.Forward.Len()-1]).To(Equal(5.0))
			Expect(pair.Backward.Times[0]).To(Equal(-5.0))

			last := pair.Forward.States[pair.Forward.Len()-1]
			Expect(last[0]).To(BeNumerically("~", math.Cos(5), 1e-5))
		})

		It("keys pairs by seed and keeps insertion order", func() {
			_, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())
			_, err = model.AddTrajectory(dynamo.State{0, 2})
			Expect(err).NotTo(HaveOccurred())
			_, err = model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())

			pairs := model.Trajectories()
			Expect(pairs).To(HaveLen(2))
			Expect(pairs[0].Seed).To(Equal(dynamo.State{1, 0}))
			Expect(pairs[1].Seed).To(Equal(dynamo.State{0, 2}))

			Expect(model.RemoveTrajectory(dynamo.State{1, 0})).To(BeTrue())
			Expect(model.RemoveTrajectory(dynamo.State{1, 0})).To(BeFalse())
			Expect(model.Trajectories()).To(HaveLen(1))

			model.ClearTrajectories()
			Expect(model.Trajectories()).To(BeEmpty())
		})

		It("rejects non-finite and mis-sized seeds", func() {
			_, err := model.AddTrajectory(dynamo.State{math.NaN(), 0})
			Expect(err).To(MatchError(phase.ErrInvalidSeed))

			_, err = model.AddTrajectory(dynamo.State{1})
			Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
			Expect(model.Trajectories()).To(BeEmpty())
		})

		It("re-integrates existing seeds when the time bounds change", func() {
			_, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())

			Expect(model.SetTimeBounds(dynamo.TimeBounds{Forward: 2, Reverse: -1})).To(Succeed())
			pair := model.Trajectories()[0]
			Expect(pair.Forward.Times[pair.Forward.Len()-1]).To(Equal(2.0))
			Expect(pair.Backward.Times[0]).To(Equal(-1.0))
			Expect(model.Bounds()).To(Equal(dynamo.TimeBounds{Forward: 2, Reverse: -1}))

			Expect(model.SetTimeBounds(dynamo.TimeBounds{Forward: -2, Reverse: -1})).To(MatchError(dynamo.ErrLimitMagnitude))
			Expect(model.Bounds().Forward).To(Equal(2.0))
		})
	})

	Describe("UpdateSystem", func() {
		It("passes through Stale and drops derived state", func() {
			_, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())
			before := model.Field()

			saddle := mustSystem([]string{"x", "y"}, "x", "-y")
			Expect(model.UpdateSystem(saddle, window)).To(Succeed())

			Expect(history).To(Equal([]transition{
				{phase.Uninitialized, phase.Ready},
				{phase.Ready, phase.Stale},
				{phase.Stale, phase.Ready},
			}))
			Expect(model.State()).To(Equal(phase.Ready))
			Expect(model.System()).To(BeIdenticalTo(saddle))
			Expect(model.Field()).NotTo(BeIdenticalTo(before))
			Expect(model.Trajectories()).To(BeEmpty())
		})

		It("leaves caches unchanged when the update is invalid", func() {
			_, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())
			Expect(model.ToggleNullclines(true)).To(Succeed())
			grid := model.Field()
			nc, _ := model.Nullclines()

			bad := window
			bad[1] = dynamo.Interval{Min: 4, Max: 4}
			err = model.UpdateSystem(mustSystem([]string{"x", "y"}, "x", "-y"), bad)
			Expect(err).To(MatchError(dynamo.ErrLimitMagnitude))

			Expect(model.State()).To(Equal(phase.Ready))
			Expect(history).To(HaveLen(1))
			Expect(model.System()).To(BeIdenticalTo(center))
			Expect(model.Window()).To(Equal(window))
			Expect(model.Field()).To(BeIdenticalTo(grid))
			Expect(model.Trajectories()).To(HaveLen(1))
			after, shown := model.Nullclines()
			Expect(shown).To(BeTrue())
			Expect(after).To(Equal(nc))
		})

		It("refuses new trajectories while Stale", func() {
			var (
				m        *phase.Model
				err      error
				staleErr error
				observed bool
			)
			m, err = phase.New(center, window, bounds,
				phase.WithObserver(func(from, to phase.State) {
					if to == phase.Stale {
						observed = true
						_, staleErr = m.AddTrajectory(dynamo.State{1, 0})
					}
				}))
			Expect(err).NotTo(HaveOccurred())

			Expect(m.UpdateSystem(center, window)).To(Succeed())
			Expect(observed).To(BeTrue())
			Expect(staleErr).To(MatchError(dynamo.ErrNotReady))
			Expect(m.Trajectories()).To(BeEmpty())
		})

		It("lets observers call back into the model", func() {
			var (
				m         *phase.Model
				err       error
				staleErr  error
				updateErr error
				readyErr  error
			)
			m, err = phase.New(center, window, bounds,
				phase.WithObserver(func(from, to phase.State) {
					switch {
					case to == phase.Stale:
						staleErr = m.ToggleNullclines(true)
						updateErr = m.UpdateSystem(center, window)
					case from == phase.Stale:
						readyErr = m.ToggleNullclines(true)
					}
				}))
			Expect(err).NotTo(HaveOccurred())

			done := make(chan error, 1)
			go func() { done <- m.UpdateSystem(mustSystem([]string{"x", "y"}, "x", "-y"), window) }()
			Eventually(done, "5s").Should(Receive(BeNil()))

			Expect(staleErr).To(MatchError(dynamo.ErrNotReady))
			Expect(updateErr).To(MatchError(dynamo.ErrNotReady))
			Expect(readyErr).NotTo(HaveOccurred())
			Expect(m.NullclinesShown()).To(BeTrue())
			Expect(m.SetTimeBounds(dynamo.TimeBounds{Forward: 1, Reverse: -1})).To(Succeed())
		})

		It("recomputes nullclines that are shown", func() {
			Expect(model.ToggleNullclines(true)).To(Succeed())

			shifted := mustSystem([]string{"x", "y"}, "y - 1", "-x")
			Expect(model.UpdateSystem(shifted, window)).To(Succeed())

			nc, shown := model.Nullclines()
			Expect(shown).To(BeTrue())
			curves := nc.Curves("x")
			Expect(curves).To(HaveLen(1))
			for _, p := range curves[0] {
				Expect(p[1]).To(BeNumerically("~", 1, 1e-9))
			}
		})
	})

	Describe("nullclines", func() {
		It("are computed on demand and toggling keeps the field", func() {
			_, shown := model.Nullclines()
			Expect(shown).To(BeFalse())
			grid := model.Field()
			_, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())

			Expect(model.ToggleNullclines(true)).To(Succeed())
			nc, shown := model.Nullclines()
			Expect(shown).To(BeTrue())
			Expect(nc).To(HaveLen(2))
			Expect(nc.Curves("x")).To(HaveLen(1))
			Expect(nc.Curves("y")).To(HaveLen(1))

			Expect(model.ToggleNullclines(false)).To(Succeed())
			_, shown = model.Nullclines()
			Expect(shown).To(BeFalse())

			Expect(model.Field()).To(BeIdenticalTo(grid))
			Expect(model.Trajectories()).To(HaveLen(1))
		})
	})

	Describe("FixedPoints", func() {
		It("classifies and refreshes after an update", func() {
			fps, err := model.FixedPoints()
			Expect(err).NotTo(HaveOccurred())
			Expect(fps).To(HaveLen(1))
			Expect(fps[0].Kind).To(Equal(analysis.Center))

			Expect(model.UpdateSystem(mustSystem([]string{"x", "y"}, "x", "-y"), window)).To(Succeed())
			fps, err = model.FixedPoints()
			Expect(err).NotTo(HaveOccurred())
			Expect(fps).To(HaveLen(1))
			Expect(fps[0].Kind).To(Equal(analysis.Saddle))
		})
	})

	Describe("configuration", func() {
		It("applies a config record and integrates its seeds", func() {
			cfg := config.GetPreset("saddle")
			cfg.Seeds = [][]float64{{1, 1}, {-1, 1}}
			cfg.Nullclines = true

			Expect(model.ApplyConfig(cfg)).To(Succeed())
			Expect(model.System().Exprs()).To(Equal(cfg.Exprs))
			Expect(model.Trajectories()).To(HaveLen(2))
			_, shown := model.Nullclines()
			Expect(shown).To(BeTrue())
		})

		It("rejects a bad record without touching the model", func() {
			grid := model.Field()
			cfg := config.DefaultConfig()
			cfg.TR = "later"

			Expect(model.ApplyConfig(cfg)).To(MatchError(dynamo.ErrLimitType))
			Expect(model.System()).To(BeIdenticalTo(center))
			Expect(model.Field()).To(BeIdenticalTo(grid))
			Expect(history).To(HaveLen(1))
		})

		It("ApplyConfig with an invalid seed leaves system, field and trajectories unchanged", func() {
			_, err := model.AddTrajectory(dynamo.State{1, 0})
			Expect(err).NotTo(HaveOccurred())
			grid := model.Field()

			for _, bad := range []float64{math.NaN(), math.Inf(1)} {
				cfg := config.DefaultConfig()
				cfg.Seeds = [][]float64{{bad, 0}}
				Expect(model.ApplyConfig(cfg)).To(MatchError(dynamo.ErrInvalidCoordinates))
			}

			Expect(model.State()).To(Equal(phase.Ready))
			Expect(model.System()).To(BeIdenticalTo(center))
			Expect(model.Field()).To(BeIdenticalTo(grid))
			Expect(model.Trajectories()).To(HaveLen(1))
			Expect(model.Trajectories()[0].Seed).To(Equal(dynamo.State{1, 0}))
			Expect(history).To(HaveLen(1))
		})

		It("builds a one-dimensional model from a preset", func() {
			m, err := phase.FromConfig(config.GetPreset("default_1d"))
			Expect(err).NotTo(HaveOccurred())
			Expect(m.System().Dim()).To(Equal(1))
			Expect(m.Trajectories()).NotTo(BeEmpty())
			for _, p := range m.Field().Points {
				Expect(p.Vec[0]).To(Equal(1.0))
			}
		})
	})
})

var _ = Describe("Snapshot", func() {
	It("captures a consistent view", func() {
		sys := mustSystem([]string{"x"}, "sin(x)")
		window := dynamo.Window{{Min: -5, Max: 5}, {Min: -4, Max: 4}}
		m, err := phase.New(sys, window, dynamo.TimeBounds{Forward: 2, Reverse: -2})
		Expect(err).NotTo(HaveOccurred())
		_, err = m.AddTrajectory(dynamo.State{1})
		Expect(err).NotTo(HaveOccurred())

		s := m.Snapshot()
		Expect(s.State).To(Equal(phase.Ready))
		Expect(s.Dim()).To(Equal(1))
		Expect(s.AxisLabels()).To(Equal([2]string{"t", "x"}))
		Expect(s.Exprs).To(Equal([]string{"sin(x)"}))
		Expect(s.Trajectories).To(HaveLen(1))
		Expect(s.Nullclines).To(BeNil())
		Expect(s.FixedPoints).To(BeNil())

		_, err = m.FixedPoints()
		Expect(err).NotTo(HaveOccurred())
		Expect(m.Snapshot().FixedPoints).To(HaveLen(3))

		m.ClearTrajectories()
		Expect(s.Trajectories).To(HaveLen(1))
	})
})
