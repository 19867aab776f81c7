// Package analysis characterizes closed-loop behavior after the fact.
//
//   - [MaxLyapunov]: largest Lyapunov exponent of a law-driven rollout,
//     twin-trajectory method with per-step renormalization
//   - [PowerSpectrum]: magnitude spectrum of a recorded signal
//   - [DominantFrequency]: the spectrum's strongest non-DC line
//
// A positive largest Lyapunov exponent means the loop amplifies
// perturbations:
//
//	lambda, err := analysis.MaxLyapunov(sys, newStepper, l, x0, cfg, 0)
//	if err == nil && lambda > 0 {
//	    // sensitive dependence on initial conditions
//	}
package analysis
