/*
Package observability turns the orchestrator's lifecycle hooks into Prometheus
metrics and structured log lines.

Hook events carry only derived fields (stages, action, intent, risk, chaos
category, language, violation codes, team names). Message text and session
identifiers never reach this package, so its output can be exported to
analytics without further scrubbing.
*/
package observability
