/*
Package observability provides the Prometheus collectors of the hashfsm engine.

It counts transition requests (applied, rejected, failed), initialization hook
outcomes and definition changes. The collectors are created unregistered so
hosts decide which registry exposes them.
*/
package observability
