// Package redis provides a Redis-backed session store and distributed locker,
// for deployments where several replicas serve the same conversations.
package redis
