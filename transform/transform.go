// Package transform holds IR-to-IR passes that move data the API supplies
// at draw or dispatch time into a single immediate-data block.
//
// PrepareImmediateData builds the block's layout. ArrayLengthFromImmediates
// replaces runtime array length queries with arithmetic over buffer sizes
// stored in that block. Both passes validate the module on entry and exit.
//
// Passes panic with *ICE on conditions that indicate a bug in the caller
// rather than in the shader (overlapping layout requests, more than one
// immediate variable). Malformed modules are reported as errors wrapping
// ErrInvalidModule.
package transform

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gogpu/immediates/ir"
)

// ErrInvalidModule is wrapped by every error caused by a module failing
// IR validation before or after a pass.
var ErrInvalidModule = errors.New("invalid module")

// ICE is the panic value of an internal compiler error.
type ICE struct {
	Pass    string
	Message string
}

// Error implements the error interface.
func (e *ICE) Error() string {
	return fmt.Sprintf("internal compiler error in %s: %s", e.Pass, e.Message)
}

func ice(pass, format string, args ...any) {
	panic(&ICE{Pass: pass, Message: fmt.Sprintf(format, args...)})
}

// Option configures a pass.
type Option func(*options)

type options struct {
	logger *slog.Logger
}

// WithLogger sets the logger passes report their rewrites to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func buildOptions(opts []Option) options {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Validate checks m and returns an error wrapping ErrInvalidModule that
// lists every validation failure.
func Validate(m *ir.Module, stage string) error {
	errs, err := ir.Validate(m)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", stage, ErrInvalidModule, err)
	}
	if len(errs) == 0 {
		return nil
	}
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Errorf("%s: %w: %s", stage, ErrInvalidModule, strings.Join(msgs, "; "))
}

// run wraps a pass body with validation on entry and exit.
func run(m *ir.Module, pass string, o options, body func() error) error {
	if err := Validate(m, pass+" input"); err != nil {
		return err
	}
	o.logger.Debug("running pass", "pass", pass)
	if err := body(); err != nil {
		return fmt.Errorf("%s: %w", pass, err)
	}
	return Validate(m, pass+" output")
}

// RunPass runs body as the named pass. The module is validated before and
// after body, and body receives the logger configured by opts.
func RunPass(m *ir.Module, pass string, body func(log *slog.Logger) error, opts ...Option) error {
	o := buildOptions(opts)
	return run(m, pass, o, func() error { return body(o.logger) })
}
