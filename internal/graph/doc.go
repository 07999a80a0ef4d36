// Package graph implements the suspension cache for activation-graph nodes.
//
// Every node lives behind a Provider: a stable id plus an optional live
// payload. Other nodes refer to each other by id, never by payload, so a
// payload can be serialized to a SuspensionHook and dropped from memory
// while the rest of the graph keeps working. The next Get reloads it.
//
// Record format:
//
//	byte   type tag     index into the model's Registry
//	...    fields       written by the node's WriteFields
//
// The whole record is optionally gzip-compressed. Compression is a
// model-wide setting, so one store never mixes compressed and plain records.
//
// Locking:
//   - Model.mu guards the handle table and the active set.
//   - Provider.mu guards one payload swap (reactivate, suspend, delete).
//   - Neuron.mu guards one neuron's output synapses.
//
// Provider.mu may be held while taking Model.mu, never the reverse.
package graph
