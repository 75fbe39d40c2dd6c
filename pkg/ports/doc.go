/*
Package ports defines the driven ports (interfaces) for the stagegate core.

These interfaces decouple the orchestrator from external implementations, so the
same pipeline runs against an in-memory map, a JSON directory or Redis, and hands
mandated actions to whichever provider the host wires in.

# Key Interfaces

  - SessionStore: persists and loads the per-session stage context.
  - DistributedLocker: serializes turns of one session across replicas.
  - ActionExecutor: runs a mandated search or booking against a provider.
*/
package ports
