// Package plant bundles the dynamics models the laws are exercised on.
//
//   - [Pendulum]: damped torque-driven pendulum, state [theta, omega]
//   - [CartPole]: force-driven cart with a balancing pole
//   - [SpringMass]: linear mass-spring-damper, handy for exact comparisons
//   - [DoubleIntegrator]: force on a point mass, the minimal benchmark
//
// Every plant implements [loop.System] and [loop.Configurable]; the
// conservative ones also implement [loop.Hamiltonian] so energy drift can
// be tracked.
package plant
