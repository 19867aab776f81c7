package law_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"ctrllab/internal/law"
	"ctrllab/internal/loop"
)

var _ = Describe("Feedback", func() {
	var (
		k *mat.Dense
		f *law.Feedback
	)

	BeforeEach(func() {
		// 1x2 gain: u = uff - (2 dx0 + 0.5 dx1)
		k = mat.NewDense(1, 2, []float64{2, 0.5})
		var err error
		f, err = law.NewFeedback(k, loop.State{1, 0}, loop.Control{0.25})
		Expect(err).NotTo(HaveOccurred())
	})

	It("reports the gain dimensions", func() {
		Expect(f.ControlDim()).To(Equal(1))
		Expect(f.StateDim()).To(Equal(2))
	})

	It("computes uff - K (x - ref)", func() {
		u, err := f.Compute(loop.State{2, 4}, 0)
		Expect(err).NotTo(HaveOccurred())
		// 0.25 - (2*(2-1) + 0.5*(4-0)) = 0.25 - 4
		Expect(u).To(HaveLen(1))
		Expect(u[0]).To(BeNumerically("~", -3.75, 1e-12))
	})

	It("is exactly the feedforward at the reference", func() {
		u, err := f.Compute(loop.State{1, 0}, 3)
		Expect(err).NotTo(HaveOccurred())
		Expect(u[0]).To(BeNumerically("~", 0.25, 1e-12))
	})

	It("rejects states of the wrong length", func() {
		_, err := f.Compute(loop.State{1}, 0)
		Expect(err).To(MatchError(loop.ErrDimensionMismatch))
		_, err = f.Compute(loop.State{1, 2, 3}, 0)
		Expect(err).To(MatchError(loop.ErrDimensionMismatch))
	})

	Describe("construction", func() {
		It("defaults nil ref and uff to zero", func() {
			g, err := law.NewFeedback(k, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			u, err := g.Compute(loop.State{0, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(u[0]).To(BeZero())
		})

		It("rejects mismatched reference or feedforward", func() {
			_, err := law.NewFeedback(k, loop.State{1, 2, 3}, nil)
			Expect(err).To(MatchError(loop.ErrDimensionMismatch))
			_, err = law.NewFeedback(k, nil, loop.Control{1, 2})
			Expect(err).To(MatchError(loop.ErrDimensionMismatch))
		})

		It("copies the gain it is given", func() {
			g, err := law.NewFeedback(k, nil, nil)
			Expect(err).NotTo(HaveOccurred())
			k.Set(0, 0, 100)
			u, _ := g.Compute(loop.State{1, 0}, 0)
			Expect(u[0]).To(BeNumerically("~", -2, 1e-12))
		})
	})

	Describe("ControlSensitivity", func() {
		It("returns -K for every state and time", func() {
			j, err := f.ControlSensitivity(loop.State{5, -5}, 2)
			Expect(err).NotTo(HaveOccurred())
			want := mat.NewDense(1, 2, []float64{-2, -0.5})
			Expect(mat.EqualApprox(j, want, 1e-12)).To(BeTrue())
		})

		It("is reachable through the capability helper", func() {
			j, err := loop.SensitivityOf(f, loop.State{0, 0}, 0)
			Expect(err).NotTo(HaveOccurred())
			r, c := j.Dims()
			Expect(r).To(Equal(1))
			Expect(c).To(Equal(2))
		})

		It("rejects states of the wrong length", func() {
			_, err := f.ControlSensitivity(loop.State{0}, 0)
			Expect(err).To(MatchError(loop.ErrDimensionMismatch))
		})
	})

	Describe("Clone", func() {
		It("detaches the reference", func() {
			cl := f.Clone().(*law.Feedback)
			Expect(cl.SetReference(loop.State{-3, -3})).To(Succeed())

			u, _ := f.Compute(loop.State{1, 0}, 0)
			Expect(u[0]).To(BeNumerically("~", 0.25, 1e-12), "original moved with the clone")
		})
	})
})
