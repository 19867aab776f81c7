package loop

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// plainLaw implements Law and nothing else.
type plainLaw struct{ d int }

func (p *plainLaw) ControlDim() int { return p.d }
func (p *plainLaw) Compute(x State, t float64) (Control, error) {
	return make(Control, p.d), nil
}
func (p *plainLaw) Clone() Law { c := *p; return &c }

// richLaw additionally exposes both sensitivities.
type richLaw struct{ plainLaw }

func (r *richLaw) ControlSensitivity(x State, t float64) (*mat.Dense, error) {
	return mat.NewDense(r.d, len(x), nil), nil
}

func (r *richLaw) DerivativeU0(x State, t float64) *mat.Dense {
	return Identity(r.d)
}

func TestSensitivityOfUnsupported(t *testing.T) {
	_, err := SensitivityOf(&plainLaw{d: 2}, State{0, 0}, 0)
	if !errors.Is(err, ErrSensitivityUnsupported) {
		t.Fatalf("err = %v, want ErrSensitivityUnsupported", err)
	}
}

func TestDerivativeU0OfUnsupported(t *testing.T) {
	_, err := DerivativeU0Of(&plainLaw{d: 2}, State{0, 0}, 0)
	if !errors.Is(err, ErrSensitivityUnsupported) {
		t.Fatalf("err = %v, want ErrSensitivityUnsupported", err)
	}
}

func TestSensitivityOfDispatch(t *testing.T) {
	l := &richLaw{plainLaw{d: 2}}

	j, err := SensitivityOf(l, State{0, 0, 0}, 1.5)
	if err != nil {
		t.Fatalf("SensitivityOf: %v", err)
	}
	r, c := j.Dims()
	if r != 2 || c != 3 {
		t.Errorf("Jacobian dims = %dx%d, want 2x3", r, c)
	}

	d, err := DerivativeU0Of(l, State{0, 0, 0}, 1.5)
	if err != nil {
		t.Fatalf("DerivativeU0Of: %v", err)
	}
	r, c = d.Dims()
	if r != 2 || c != 2 {
		t.Errorf("derivative dims = %dx%d, want 2x2", r, c)
	}
}

func TestIdentity(t *testing.T) {
	m := Identity(3)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if got := m.At(i, j); got != want {
				t.Errorf("Identity(3)[%d,%d] = %v, want %v", i, j, got, want)
			}
		}
	}
}

func TestStepErrorUnwrap(t *testing.T) {
	inner := ErrInvalidState
	e := &StepError{Step: 10, Time: 0.1, Err: inner}
	if !errors.Is(e, ErrInvalidState) {
		t.Error("StepError does not unwrap to its cause")
	}
	if e.Error() == "" {
		t.Error("empty error string")
	}
}
