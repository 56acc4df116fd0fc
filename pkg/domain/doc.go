/*
Package domain contains the core data model of the hashfsm engine.

It defines what a state machine is, independent of where it is stored or how
it is driven. The package is kept free of I/O; hosts and adapters live
elsewhere.

# Key Entities

  - Definition: a named FSM schema (states, events, governed prefix and state field).
  - Event: a named transition arc with one or more source states and one target.
  - Notification: a host write notification consumed by the initialization hook.

Definitions travel in two forms: the caller-supplied payload (YAML or JSON,
see ParsePayload) and the stored form (indented JSON, see Encode and Decode).
*/
package domain
