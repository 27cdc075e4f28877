package errors_test

import (
	"fmt"
	"io"

	"github.com/ajitpratap0/ingestor/pkg/errors"
)

// Example demonstrates basic error creation and wrapping.
func Example() {
	err := errors.New(errors.ErrorTypeConnection, "failed to connect to database").
		WithDetail("host", "localhost").
		WithDetail("port", 5432)

	fmt.Println(err.Error())

	// Output:
	// connection: failed to connect to database
}

// ExampleWrap shows how to wrap existing errors with context.
func ExampleWrap() {
	err := errors.Wrap(io.ErrUnexpectedEOF, errors.ErrorTypeFile, "failed to read CSV file").
		WithDetail("file", "data.csv")

	if errors.IsType(err, errors.ErrorTypeFile) {
		fmt.Println("This is a file error")
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		fmt.Println("Cause is preserved")
	}

	// Output:
	// This is a file error
	// Cause is preserved
}

// ExampleAnnotate shows that annotating keeps the innermost category.
func ExampleAnnotate() {
	inner := errors.New(errors.ErrorTypeConfig, "unsupported db_type: oracle")
	err := errors.Annotate(inner, "dataset orders")

	fmt.Println(errors.TypeOf(err))
	fmt.Println(err)

	// Output:
	// config
	// config: dataset orders: config: unsupported db_type: oracle
}

// ExampleIsRetryable shows how to check if an error is retryable.
func ExampleIsRetryable() {
	fmt.Println(errors.IsRetryable(errors.New(errors.ErrorTypeConnection, "refused")))
	fmt.Println(errors.IsRetryable(errors.New(errors.ErrorTypeEnvironment, "driver missing")))

	// Output:
	// true
	// false
}
