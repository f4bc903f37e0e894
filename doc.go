/*
Package stanza is an engine for agents that act through Action Scripts.

Instead of free-form tool calling, the agent emits a small script of
capability calls each turn. The script is validated incrementally while
it streams, executed in a sandbox against a shared state store, and
regenerated with feedback when it is rejected.

The root package offers a batteries-included Agent; the pieces live in
pkg/ for callers that want to compose them differently.
*/
package stanza
