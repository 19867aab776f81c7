// Package loop defines the control-loop contract shared by control laws,
// dynamics models and the simulation drivers.
//
// The package holds the fundamental vocabulary for simulating controlled
// ordinary differential equations (dX/dt = f(X, u, t)):
//
//   - [State]: flat vector of state variables
//   - [Control]: control action vector
//   - [Law]: maps (state, time) to a control action, with polymorphic cloning
//   - [System]: ODE right-hand side plus its dimensions
//   - [Stepper]: numerical one-step integrator
//   - [Metric], [Observer]: per-step instrumentation hooks
//
// # Cloning
//
// Every [Law] can produce an independent deep copy of itself via Clone.
// Simulation branches that run concurrently (ensembles, perturbed rollouts)
// must each hold their own clone; a single law instance is never safe for
// concurrent use.
//
// # Sensitivities
//
// Laws that expose derivatives implement [Differentiable] (with respect to
// the state) or [InputDifferentiable] (with respect to their stored control
// vector). Both are optional capabilities discovered by type assertion, the
// same way [Hamiltonian] and [Configurable] are.
package loop
