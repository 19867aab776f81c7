// Package law implements the control laws the simulator can drive plants
// with.
//
//   - [Constant]: open-loop, returns a stored vector regardless of state
//   - [Feedback]: linear state feedback u = uff - K (x - ref)
//   - [PID]: scalar PID on one state variable
//   - [Schedule]: zero-order hold over a time-indexed control table
//
// All laws satisfy [loop.Law]. Constant additionally implements
// [loop.InputDifferentiable] and Feedback implements [loop.Differentiable];
// the other laws expose no derivatives.
package law
