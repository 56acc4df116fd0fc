/*
Package ports defines the driven ports (interfaces) of the hashfsm engine.

These interfaces decouple the engine from the key-value store that owns the
data, so the same definitions, transitions and hook run unchanged against the
in-memory host or Redis.

# Key Interfaces

  - HashStore: field reads and writes on hash entities.
  - FieldSwapper: optional conditional field write used by the compare-and-swap strategy.
  - ValueStore / ValueType: opaque typed values with encode, decode and release hooks.
  - Notifier: write notifications feeding the initialization hook.
  - DistributedLocker: cross-process locking for the locked strategy.

RunHostContract verifies that an adapter honors these contracts.
*/
package ports
