// Package testutil provides test doubles shared by package tests.
//
//   - FaultyHook wraps a graph.SuspensionHook and injects I/O failures or
//     hides records, to exercise error and deleted-node paths.
//   - Recorder is an engine.EventListener that records the drain order.
package testutil
