// Package errors provides examples of structured error handling in reservoir.
package errors_test

import (
	stderrors "errors"
	"fmt"
	"io"

	"github.com/ajitpratap0/reservoir/pkg/errors"
)

// Example demonstrates basic error creation with details.
func Example() {
	err := errors.New(errors.ErrorTypePoolExhausted, "no entity available").
		WithDetail("pool", "bullets").
		WithDetail("capacity", 32)

	fmt.Println(err.Error())

	// Output:
	// pool_exhausted: no entity available
}

// ExampleWrap shows how to wrap a factory failure with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFactory, "create entity failed").
		WithDetail("index", 3)

	if errors.IsType(err, errors.ErrorTypeFactory) {
		fmt.Println("This is a factory error")
	}

	if stderrors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause was unexpected EOF")
	}

	// Output:
	// This is a factory error
	// Cause was unexpected EOF
}

// ExampleError_Is shows matching against the package sentinels.
func ExampleError_Is() {
	err := fmt.Errorf("spawn tick: %w", errors.New(errors.ErrorTypePoolExhausted, "nothing to reclaim"))

	fmt.Println(stderrors.Is(err, errors.ErrPoolExhausted))
	fmt.Println(stderrors.Is(err, errors.ErrInvalidState))

	// Output:
	// true
	// false
}
