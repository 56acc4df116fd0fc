/*
Package hook implements the initialization hook of the hashfsm engine.

The Initializer subscribes to the host's write notifications. When a hash
under a registered prefix is written and does not carry its state field yet,
the Definition's initial state is stamped onto it. Entities that are not
governed, definitions that cannot be loaded and host failures are ignored:
the hook runs beside an unrelated mutation and must never disturb it.
*/
package hook
