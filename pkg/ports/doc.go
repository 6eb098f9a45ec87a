/*
Package ports defines the driven ports (interfaces) of the Studio.

These interfaces decouple catalog handling from the storage backend, so the same editing
and validation flow works against an in-memory mock, YAML files on disk, Redis, or a
remote backend that exposes the catalog over HTTP.

# Key Interfaces

  - Catalog: CRUD plus reset/backup over one kind of record (automations or procedures).
  - DistributedLocker: serialises catalog resets across replicas sharing a backend.
*/
package ports
