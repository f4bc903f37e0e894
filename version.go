package stanza

// Version is the current release of the stanza module.
const Version = "0.3.0"
