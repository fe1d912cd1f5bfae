/*
Package domain contains the core types of the sluice pipeline.

It defines what a run is made of without any I/O: stage identities,
continuation signals, the per-request CommunicationContext and its RunState,
snapshots of parked runs, lifecycle events and the error taxonomy.

# Key Entities

  - Identity: names a contributor step or a well-known stage.
  - Continuation: Continue, RenderNow or Abort, returned by every step.
  - RunState: the position of one request in the ordered step list.
  - CommunicationContext: request, response and pipeline data of one request.
  - Snapshot: the serializable form of a parked run.
*/
package domain
