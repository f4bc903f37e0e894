// Package script implements the restricted Action Script dialect: a
// fixed grammar of capability calls with literal, list, map and nested
// call arguments, separated by newlines or semicolons.
//
// The parser is a small recursive-descent parser, deliberately not a
// general-purpose interpreter. It supports partial input: a prefix that
// could still become valid with more text fails with ErrIncomplete,
// which the incremental validator treats as "keep buffering", while any
// other parse error is a definite syntax violation.
package script
