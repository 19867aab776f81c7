// Package linearize extracts local linear models from plants and closed
// loops by central differences, and propagates stored-control derivatives
// through full rollouts.
//
//   - [Plant]: A = df/dx, B = df/du at an operating point
//   - [ClosedLoop]: A + B J for laws exposing du/dx
//   - [ControlToState]: d x(T) / d u0 for laws exposing du/du0
//   - [Eigenvalues]: spectrum of the extracted models
package linearize
