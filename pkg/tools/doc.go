// Package tools provides ready-made capability sets: workspace file
// access and allow-listed external process execution. They are plain
// registry capabilities; nothing here is required by the engine.
package tools
