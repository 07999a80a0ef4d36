package graph

import "github.com/zoobzio/capitan"

// Signal definitions for provider lifecycle events.
// Signals follow the pattern: actgraph.provider.<event>.
var (
	ProviderRegistered = capitan.NewSignal(
		"actgraph.provider.registered",
		"New node registered with the model",
	)
	ProviderSaved = capitan.NewSignal(
		"actgraph.provider.saved",
		"Modified payload written to the suspension hook",
	)
	ProviderSuspended = capitan.NewSignal(
		"actgraph.provider.suspended",
		"Payload dropped from memory",
	)
	ProviderReactivated = capitan.NewSignal(
		"actgraph.provider.reactivated",
		"Payload reloaded from the suspension hook",
	)
	ProviderDeleted = capitan.NewSignal(
		"actgraph.provider.deleted",
		"Node removed or found missing in the suspension hook",
	)
	ProviderFailed = capitan.NewSignal(
		"actgraph.provider.failed",
		"Suspension hook I/O or record decoding failed",
	)
)

// Field keys for provider event data.
var (
	FieldNodeID   = capitan.NewIntKey("node_id")
	FieldNodeType = capitan.NewStringKey("node_type")
	FieldMode     = capitan.NewStringKey("mode")
	FieldOp       = capitan.NewStringKey("op")
	FieldBytes    = capitan.NewIntKey("bytes") // encoded record size
	FieldDuration = capitan.NewDurationKey("duration")
	FieldError    = capitan.NewErrorKey("error")
)
