/*
Package observability turns transpiler lifecycle events into metrics and logs.

Metrics registers Prometheus collectors and exposes them as
domain.LifecycleHooks; LogHooks does the same for a structured logger.
Hooks can be combined with Chain.
*/
package observability
