/*
Package session serializes access to conversation stage contexts.

A stage turn is a read-modify-write (extract, merge, recompute the stage, persist);
two turns of the same session interleaving would silently drop collected data or
a consent grant. The Manager holds a per-session mutex for the whole cycle and,
when replicas share a store, a distributed lock on top of it.
*/
package session
