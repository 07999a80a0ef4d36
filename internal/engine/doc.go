// Package engine implements the step scheduler.
//
// A Thought is one processing session. It owns an ordered queue of pending
// steps and drains it to completion on a single goroutine. Each step is bound
// to one graph element and may mutate fields and enqueue further steps.
//
// ORDERING:
//
// The queue is not FIFO. Steps are ordered by QueueKey:
//  1. Phase ascending: every step of an earlier phase runs before any step
//     of a later phase, regardless of firing time.
//  2. Fired ascending: within a phase, the element that fired earlier runs
//     earlier. Elements that have not fired sort last.
//  3. Seq ascending: ties break by insertion order, stamped from a
//     session-monotonic logical Clock.
//
// DEDUPLICATION:
//
// An element holds at most one pending step per (phase, name). Enqueueing a
// duplicate is a no-op. Steps that implement Repeatable opt out.
//
// CONCURRENCY:
//
// A Thought is not safe for concurrent use and takes no locks. Independent
// sessions run on separate goroutines with separate Thoughts. Cancellation is
// checked between steps only; a step always runs to completion.
package engine
