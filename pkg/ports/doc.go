/*
Package ports defines the interfaces between the sluice pipeline and the
outside world.

# Key Interfaces

  - Builder, Order, Contributor: the registration surface for contributors.
  - Resolver: builds contributors from a capability name.
  - Pipeline: what host adapters drive.
  - RunStore: persists parked runs.
  - DistributedLocker: coordinates resumption of parked runs across replicas.

RunStoreContract is a reusable test suite that every RunStore adapter runs.
*/
package ports
