/*
Package errors implements the error taxonomy shared by all packages.

The idea is to reuse as many errors from this package as possible and define
custom package errors only when absolutely necessary. Every error returned by
the service wraps exactly one root error declared with Register, which lets the
HTTP layer decide how to report it without knowing where it came from.

If you want to register a custom error - use Register(code, description).
For reusing errors - use ErrXxx.New and ErrXxx.Newf or Wrap/Wrapf.

There is support for stacktraces. Create the error using ErrXyz.New("...") or
errors.Wrap(err, "...") at the point of creation to ensure we attach a
stacktrace. If you wrap multiple times, only the first wrap records it.

Once you have an error, you can use fmt.Printf/Sprintf to get more context
	%s is just the error message
	%+v is the full stack trace
	%v appends a compressed [filename:line] where the error was created
*/
package errors
