/*
Package ports defines the driven ports (interfaces) of the sequence runner.

These interfaces decouple run orchestration from external implementations,
allowing runs to be recorded in various storage backends and coordinated
across replicas.

# Key Interfaces

  - RunStore: Responsible for persisting and loading run records.
  - DistributedLocker: Provides distributed locking so a pipeline can be
    restricted to one run at a time across instances.
*/
package ports
