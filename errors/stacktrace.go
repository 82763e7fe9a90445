package errors

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/pkg/errors"
)

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// stackTrace returns the first stack trace found in the error chain.
func stackTrace(err error) errors.StackTrace {
	for {
		if st, ok := err.(stackTracer); ok {
			return st.StackTrace()
		}
		if c, ok := err.(causer); ok {
			err = c.Cause()
		} else {
			return nil
		}
	}
}

const thisPackage = "github.com/iov-one/quorum/errors."

// creationFrame returns file:line of the first frame outside of this
// package, which is where the error was created.
func creationFrame(st errors.StackTrace) string {
	for _, f := range st {
		pc := uintptr(f) - 1
		fn := runtime.FuncForPC(pc)
		if fn == nil {
			continue
		}
		file, line := fn.FileLine(pc)
		if strings.HasPrefix(fn.Name(), thisPackage) && !strings.HasSuffix(file, "_test.go") {
			continue
		}
		return fmt.Sprintf("%s/%s:%d", filepath.Base(filepath.Dir(file)), filepath.Base(file), line)
	}
	return ""
}

// Format implements fmt.Formatter.
func (e *wrappedError) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		if s.Flag('+') {
			_, _ = io.WriteString(s, e.Error())
			if st := stackTrace(e); st != nil {
				fmt.Fprintf(s, "%+v", st)
			}
			return
		}
		_, _ = io.WriteString(s, e.Error())
		if frame := creationFrame(stackTrace(e)); frame != "" {
			fmt.Fprintf(s, " [%s]", frame)
		}
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	default:
		_, _ = io.WriteString(s, e.Error())
	}
}
