package phase

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/phaseplane/internal/dynamo"
	"github.com/san-kum/phaseplane/internal/equations"
	"github.com/san-kum/phaseplane/internal/trajectory"
)

var _ = Describe("replacePairs", func() {
	It("does not resurrect seeds removed during re-integration", func() {
		sys, err := equations.New([]string{"x", "y"}, []string{"y", "-x"}, nil)
		Expect(err).NotTo(HaveOccurred())
		window := dynamo.Window{{Min: -5, Max: 5}, {Min: -5, Max: 5}}
		m, err := New(sys, window, dynamo.TimeBounds{Forward: 2, Reverse: -2})
		Expect(err).NotTo(HaveOccurred())

		seeds := []dynamo.State{{1, 0}, {0, 1}}
		Expect(m.AddTrajectories(context.Background(), seeds)).To(Succeed())

		m.mu.RLock()
		opts := m.integrationOptions()
		m.mu.RUnlock()
		pairs, err := trajectory.IntegrateAll(context.Background(), sys, seeds, dynamo.TimeBounds{Forward: 1, Reverse: -1}, opts)
		Expect(err).NotTo(HaveOccurred())

		Expect(m.RemoveTrajectory(dynamo.State{1, 0})).To(BeTrue())

		m.mu.Lock()
		kept := m.replacePairs(pairs)
		m.mu.Unlock()
		Expect(kept).To(Equal(1))
		Expect(m.pairs).To(HaveLen(1))
		Expect(m.pairs).NotTo(HaveKey(keyOf(dynamo.State{1, 0})))

		// re-adding the removed seed makes it visible again
		_, err = m.AddTrajectory(dynamo.State{1, 0})
		Expect(err).NotTo(HaveOccurred())
		got := m.Trajectories()
		Expect(got).To(HaveLen(2))
		Expect(got[0].Seed).To(Equal(dynamo.State{0, 1}))
		Expect(got[1].Seed).To(Equal(dynamo.State{1, 0}))
	})
})
