// Package loop drives the generate-validate-execute-correct cycle: it
// prompts the generator, streams the resulting script through the
// validator, hands accepted scripts to the sandbox, and on failure
// regenerates with structured feedback until a terminal signal or the
// attempt budget runs out.
package loop
