package schema

import (
	"errors"
	"fmt"
)

// Schema maps capability argument names to their declared types. An
// argument with no entry is accepted untyped; required-ness is the
// capability's parameter declaration, not the schema's concern.
type Schema map[string]Type

// Check validates the named arguments from args. All failures are
// reported together so the correction feedback covers the whole call,
// not just the first bad argument. A nil or empty name list checks
// nothing.
func (s Schema) Check(args map[string]any, names ...string) error {
	var errs []error
	for _, name := range names {
		typ, declared := s[name]
		if !declared {
			errs = append(errs, &ArgumentError{Arg: name, Err: errors.New("no declared type")})
			continue
		}
		value, present := args[name]
		if !present {
			errs = append(errs, &ArgumentError{Arg: name, Err: errors.New("missing")})
			continue
		}
		if err := typ.Check(value); err != nil {
			errs = append(errs, &ArgumentError{Arg: name, Err: err})
		}
	}
	return errors.Join(errs...)
}

// ArgumentError reports one argument failing its declared type.
type ArgumentError struct {
	Arg string
	Err error
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("argument %q: %v", e.Arg, e.Err)
}

func (e *ArgumentError) Unwrap() error { return e.Err }
