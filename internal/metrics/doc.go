// Package metrics provides the per-step diagnostics runners accumulate.
//
// Each metric satisfies [loop.Metric]. Instances are stateful and cheap;
// ensembles construct a fresh set per replica.
package metrics
