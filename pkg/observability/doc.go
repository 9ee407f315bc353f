/*
Package observability turns engine lifecycle events into logs and Prometheus
metrics.

Both are delivered as domain.LifecycleHooks and can be combined with
LifecycleHooks.Merge before being passed to the engine.
*/
package observability
