package law_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"ctrllab/internal/law"
	"ctrllab/internal/loop"
)

var _ = Describe("Constant", func() {
	var c *law.Constant

	BeforeEach(func() {
		var err error
		c, err = law.NewConstant(3)
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("construction", func() {
		It("starts at the zero vector", func() {
			Expect(c.ControlDim()).To(Equal(3))
			u, err := c.Compute(loop.State{1, 1, 1, 1}, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(u).To(Equal(loop.Control{0, 0, 0}))
		})

		It("rejects non-positive dimensions", func() {
			for _, d := range []int{0, -1, -3} {
				_, err := law.NewConstant(d)
				Expect(err).To(MatchError(loop.ErrNonPositiveDim), "d=%d", d)
			}
		})

		It("copies the vector given to NewConstantFrom", func() {
			seed := loop.Control{4, 5}
			l, err := law.NewConstantFrom(seed)
			Expect(err).NotTo(HaveOccurred())

			seed[0] = -100
			u, _ := l.Compute(nil, 0)
			Expect(u).To(Equal(loop.Control{4, 5}))
		})

		It("rejects an empty vector in NewConstantFrom", func() {
			_, err := law.NewConstantFrom(loop.Control{})
			Expect(err).To(MatchError(loop.ErrNonPositiveDim))
		})
	})

	Describe("Compute", func() {
		BeforeEach(func() {
			Expect(c.SetControl(loop.Control{1, 2, 3})).To(Succeed())
		})

		It("returns the stored vector for any state and time", func() {
			states := []loop.State{
				nil,
				{},
				{0, 0, 0},
				{1e9, -1e9, 42, 7, 7},
				{math.NaN()},
			}
			for _, x := range states {
				for _, t := range []float64{-5, 0, 0.001, 1e6} {
					u, err := c.Compute(x, t)
					Expect(err).NotTo(HaveOccurred())
					Expect(u).To(Equal(loop.Control{1, 2, 3}))
				}
			}
		})

		It("hands out a vector the caller may mutate", func() {
			u, _ := c.Compute(loop.State{0}, 0)
			u[0] = 999

			again, _ := c.Compute(loop.State{0}, 1)
			Expect(again).To(Equal(loop.Control{1, 2, 3}))
		})
	})

	Describe("SetControl", func() {
		It("replaces the stored vector by copy", func() {
			next := loop.Control{7, 8, 9}
			Expect(c.SetControl(next)).To(Succeed())

			next[2] = 0
			u, _ := c.Compute(nil, 0)
			Expect(u).To(Equal(loop.Control{7, 8, 9}))
			Expect(c.Control()).To(Equal(loop.Control{7, 8, 9}))
		})

		It("rejects a length mismatch and keeps the old vector", func() {
			Expect(c.SetControl(loop.Control{1, 2, 3})).To(Succeed())

			for _, bad := range []loop.Control{nil, {}, {1}, {1, 2}, {1, 2, 3, 4}} {
				err := c.SetControl(bad)
				Expect(err).To(MatchError(loop.ErrDimensionMismatch), "len=%d", len(bad))
			}
			u, _ := c.Compute(nil, 0)
			Expect(u).To(Equal(loop.Control{1, 2, 3}))
		})
	})

	Describe("DerivativeU0", func() {
		It("is the identity regardless of state and time", func() {
			want := loop.Identity(3)
			for _, t := range []float64{0, 2.5, -1} {
				got := c.DerivativeU0(loop.State{t, t}, t)
				Expect(mat.Equal(got, want)).To(BeTrue())
			}
		})

		It("stays the identity after SetControl", func() {
			Expect(c.SetControl(loop.Control{-1, -2, -3})).To(Succeed())
			Expect(mat.Equal(c.DerivativeU0(nil, 0), loop.Identity(3))).To(BeTrue())
		})

		It("is reachable through the capability helper", func() {
			m, err := loop.DerivativeU0Of(c, nil, 0)
			Expect(err).NotTo(HaveOccurred())
			r, cols := m.Dims()
			Expect(r).To(Equal(3))
			Expect(cols).To(Equal(3))
		})
	})

	Describe("state sensitivity", func() {
		It("is not defined for an open-loop law", func() {
			_, err := loop.SensitivityOf(c, loop.State{0, 0, 0}, 0)
			Expect(err).To(MatchError(loop.ErrSensitivityUnsupported))
		})
	})

	Describe("Clone", func() {
		It("detaches the control vector", func() {
			Expect(c.SetControl(loop.Control{1, 2, 3})).To(Succeed())

			cl, ok := c.Clone().(*law.Constant)
			Expect(ok).To(BeTrue())
			Expect(cl.SetControl(loop.Control{9, 9, 9})).To(Succeed())

			u, _ := c.Compute(nil, 0)
			Expect(u).To(Equal(loop.Control{1, 2, 3}))
			v, _ := cl.Compute(nil, 0)
			Expect(v).To(Equal(loop.Control{9, 9, 9}))
		})

		It("detaches the cached derivative", func() {
			cl := c.Clone().(*law.Constant)
			// deliberate vandalism on the clone's matrix
			cl.DerivativeU0(nil, 0).Set(0, 1, 42)
			Expect(mat.Equal(c.DerivativeU0(nil, 0), loop.Identity(3))).To(BeTrue())
		})

		It("preserves the dimension", func() {
			Expect(c.Clone().ControlDim()).To(Equal(3))
		})
	})

	Describe("as a Configurable", func() {
		It("round-trips components through Params and SetParam", func() {
			Expect(c.SetParam("u1", 2.5)).To(Succeed())
			Expect(c.Params()).To(HaveKeyWithValue("u1", 2.5))

			u, _ := c.Compute(nil, 0)
			Expect(u).To(Equal(loop.Control{0, 2.5, 0}))
		})

		It("rejects names outside u0..u2", func() {
			for _, name := range []string{"u3", "u-1", "kp", "", "u", "u1x"} {
				Expect(c.SetParam(name, 1)).To(MatchError(loop.ErrUnknownParam), "name=%q", name)
			}
		})
	})
})
