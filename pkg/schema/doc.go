// Package schema declares argument types for capabilities and checks
// the argument maps a script passes against them, before the handler
// runs.
//
// The type vocabulary mirrors the script dialect's literals: strings,
// integers, floats, booleans and lists. A capability declares a Schema
// next to its parameters:
//
//	registry.Capability{
//	    Name:   "search_web",
//	    Params: []registry.Param{{Name: "query", Required: true}, {Name: "limit"}},
//	    Schema: schema.Schema{
//	        "query": schema.String(),
//	        "limit": schema.Int(),
//	    },
//	    Handler: searchWeb,
//	}
//
// Custom wraps a validation func for constraints the built-in types
// can't express (non-empty strings, enum values):
//
//	"path": schema.Custom("non-empty string", func(v any) error { ... })
//
// Arguments may also arrive from nested capability calls or from
// JSON-decoded state, so the numeric types accept what those sources
// produce, not just the parser's own literals.
package schema
