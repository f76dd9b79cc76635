// Package errors wraps the standard library errors package with categorised,
// component-tagged errors that can be forwarded to a telemetry reporter.
package errors

import (
	stderrors "errors"
	"fmt"
	"maps"
	"sync"
)

// Category classifies an error for reporting and transport mapping.
type Category string

// Error categories.
const (
	CategoryGeneric       Category = "generic"
	CategoryValidation    Category = "validation"
	CategoryNotFound      Category = "not-found"
	CategoryConflict      Category = "conflict"
	CategoryDatabase      Category = "database"
	CategoryConfiguration Category = "configuration"
	CategoryNetwork       Category = "network"
	CategoryState         Category = "state"
)

// EnhancedError carries a wrapped error with its component, category and
// free-form context.
type EnhancedError struct {
	Err       error
	component string
	category  Category
	context   map[string]any
}

func (e *EnhancedError) Error() string {
	return e.Err.Error()
}

func (e *EnhancedError) Unwrap() error {
	return e.Err
}

// Component returns the component that produced the error.
func (e *EnhancedError) Component() string { return e.component }

// Category returns the error category.
func (e *EnhancedError) Category() Category { return e.category }

// Context returns a copy of the error context.
func (e *EnhancedError) Context() map[string]any {
	return maps.Clone(e.context)
}

// Builder assembles an EnhancedError.
type Builder struct {
	err *EnhancedError
}

// New starts a builder around err.
func New(err error) *Builder {
	if err == nil {
		err = stderrors.New("unknown error")
	}
	return &Builder{err: &EnhancedError{Err: err, category: CategoryGeneric}}
}

// Newf starts a builder around a formatted error. %w verbs are honoured.
func Newf(format string, args ...any) *Builder {
	return New(fmt.Errorf(format, args...))
}

// Component sets the producing component.
func (b *Builder) Component(name string) *Builder {
	b.err.component = name
	return b
}

// Category sets the error category.
func (b *Builder) Category(c Category) *Builder {
	b.err.category = c
	return b
}

// Context adds a key/value pair.
func (b *Builder) Context(key string, value any) *Builder {
	if b.err.context == nil {
		b.err.context = make(map[string]any)
	}
	b.err.context[key] = value
	return b
}

// Build finalises the error and hands it to the registered reporter.
func (b *Builder) Build() error {
	report(b.err)
	return b.err
}

// Reporter receives every built error.
type Reporter func(*EnhancedError)

var (
	reporterMu sync.RWMutex
	reporter   Reporter
)

// SetReporter installs the reporter. Passing nil disables reporting.
func SetReporter(r Reporter) {
	reporterMu.Lock()
	defer reporterMu.Unlock()
	reporter = r
}

func report(e *EnhancedError) {
	reporterMu.RLock()
	r := reporter
	reporterMu.RUnlock()
	if r != nil {
		r(e)
	}
}

// CategoryOf returns the category of the first EnhancedError in err's chain,
// or CategoryGeneric.
func CategoryOf(err error) Category {
	var ee *EnhancedError
	if stderrors.As(err, &ee) {
		return ee.category
	}
	return CategoryGeneric
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// Unwrap returns the result of calling Unwrap on err.
func Unwrap(err error) error { return stderrors.Unwrap(err) }

// Join returns an error that wraps the given errors.
func Join(errs ...error) error { return stderrors.Join(errs...) }

// NewStd creates a plain error, for sentinel declarations.
func NewStd(text string) error { return stderrors.New(text) }
