// Package validator implements incremental validation of a streaming
// Action Script: tokens are passed through as they arrive, the growing
// buffer is re-checked on every boundary, and the stream is aborted as
// soon as a violation becomes definite.
package validator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/aretw0/stanza/internal/logging"
	"github.com/aretw0/stanza/pkg/domain"
	"github.com/aretw0/stanza/pkg/ports"
	"github.com/aretw0/stanza/pkg/script"
)

// AllowList answers whether a call target may appear in a script. It is
// the union of registered capability names and control primitives.
type AllowList interface {
	Has(name string) bool
}

// AllowSet is a simple AllowList backed by a set of names.
type AllowSet map[string]struct{}

// NewAllowSet builds an AllowSet from name lists.
func NewAllowSet(names ...[]string) AllowSet {
	s := make(AllowSet)
	for _, group := range names {
		for _, n := range group {
			s[n] = struct{}{}
		}
	}
	return s
}

// Has reports membership.
func (s AllowSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// forbiddenPattern pairs a best-effort text scan with its reason.
// This is a keyword guard against a cooperative generator, not a
// security boundary.
type forbiddenPattern struct {
	re     *regexp.Regexp
	reason string
}

var forbiddenPatterns = []forbiddenPattern{
	{regexp.MustCompile(`(^|[^\w])import([^\w]|$)`), "forbidden construct: module loading ('import')"},
	{regexp.MustCompile(`(^|[^\w])__import__`), "forbidden construct: module loading ('__import__')"},
	{regexp.MustCompile(`(^|[^\w])open\s*\(`), "forbidden construct: file-handle opening ('open')"},
	{regexp.MustCompile(`(^|[^\w])eval\s*\(`), "forbidden construct: evaluating text as code ('eval')"},
	{regexp.MustCompile(`(^|[^\w])exec\s*\(`), "forbidden construct: evaluating text as code ('exec')"},
	{regexp.MustCompile(`(^|[^\w])compile\s*\(`), "forbidden construct: evaluating text as code ('compile')"},
}

// Option configures the Validator.
type Option func(*Validator)

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(v *Validator) {
		v.logger = logger
	}
}

// Validator re-derives a partial parse of the accumulating script on
// every token boundary and enforces the forbidden-construct and
// allow-list rules. A Validator instance covers a single stream.
type Validator struct {
	allow  AllowList
	parser *script.Parser
	logger *slog.Logger

	buf  strings.Builder
	prog *script.Program
}

// New creates a validator for one stream.
func New(allow AllowList, opts ...Option) *Validator {
	v := &Validator{
		allow:  allow,
		parser: script.NewParser(),
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate wraps src into a pass-through stream. Each Next pulls one
// token from src, appends it to the buffer, re-checks, and yields the
// token onward. Consumers may therefore have displayed part of a script
// that is later retracted by a *domain.ValidationError: the abort
// happens between tokens, by design.
//
// When src is exhausted a trailing full-buffer check runs, catching
// violations only visible once the script is complete.
func (v *Validator) Validate(src ports.TokenStream) ports.TokenStream {
	return &validatedStream{v: v, src: src}
}

// Script returns the accumulated script text.
func (v *Validator) Script() string {
	return v.buf.String()
}

// Program returns the parse of the completed script. It is non-nil only
// after the stream was fully consumed without a violation.
func (v *Validator) Program() *script.Program {
	return v.prog
}

// check runs both rule classes against the current buffer. final
// requires a complete parse.
func (v *Validator) check(final bool) *domain.ValidationError {
	code := v.buf.String()

	for _, p := range forbiddenPatterns {
		if p.re.MatchString(code) {
			return &domain.ValidationError{
				Kind:   domain.ValidationForbidden,
				Reason: p.reason,
				Code:   code,
			}
		}
	}

	prog, err := v.parser.Parse(code)
	if err != nil && !errors.Is(err, script.ErrIncomplete) {
		return &domain.ValidationError{
			Kind:   domain.ValidationSyntax,
			Reason: err.Error(),
			Code:   code,
		}
	}
	if final && err != nil {
		return &domain.ValidationError{
			Kind:   domain.ValidationSyntax,
			Reason: "script ends mid-statement",
			Code:   code,
		}
	}

	// The parser records call targets as soon as the opening parenthesis
	// is consumed, so unknown names are caught before the call completes.
	for _, call := range prog.Calls {
		if !v.allow.Has(call.Name) {
			return &domain.ValidationError{
				Kind:   domain.ValidationUnknownCapability,
				Reason: "call to unregistered capability: " + call.Name,
				Code:   code,
			}
		}
	}

	if final {
		v.prog = prog
	}
	return nil
}

type validatedStream struct {
	v    *Validator
	src  ports.TokenStream
	err  error
	done bool
}

// Next implements ports.TokenStream.
func (s *validatedStream) Next(ctx context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if s.done {
		return "", io.EOF
	}

	tok, err := s.src.Next(ctx)
	if err != nil {
		if err == io.EOF {
			if verr := s.v.check(true); verr != nil {
				s.fail(verr)
				return "", verr
			}
			s.done = true
			return "", io.EOF
		}
		s.err = err
		return "", err
	}

	s.v.buf.WriteString(tok)
	if verr := s.v.check(false); verr != nil {
		s.fail(verr)
		return "", verr
	}
	return tok, nil
}

func (s *validatedStream) fail(verr *domain.ValidationError) {
	s.err = verr
	s.v.logger.Debug("stream rejected",
		"kind", string(verr.Kind),
		"reason", verr.Reason,
		"buffered", len(verr.Code),
	)
}
