// Package coordination drives multi-step marketplace transactions.
//
// A purchase or listing intent is expanded into a plan of steps with
// explicit dependencies. The Coordinator executes every step whose
// dependencies are satisfied, through handlers registered by action name,
// until the transaction completes, fails, or is cancelled. A full snapshot
// of the working set and history is persisted through a Store after every
// status-affecting mutation. Storage adapters live under the filestore,
// redisstore, and mongostore subpackages; deterministic demo handlers live
// under simulation.
package coordination
