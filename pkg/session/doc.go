/*
Package session implements multi-session orchestration.

It provides safe concurrent access to per-session state stores and
agents, integrating in-process reference-counted locks with an optional
distributed locker for multi-replica deployments.
*/
package session
