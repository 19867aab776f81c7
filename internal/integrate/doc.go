// Package integrate provides the numerical one-step integrators the drivers
// advance plants with.
//
//   - [Euler]: first order, allocation-light, good for smoke tests
//   - [RK4]: fixed-step fourth order, the default
//   - [RK45]: Dormand-Prince 5(4) with step-size suggestion
//   - [Verlet]: velocity Verlet for plants with [q; v] state layout
//
// Steppers carry scratch buffers and are therefore not safe for concurrent
// use; ensemble code constructs one per rollout.
package integrate
