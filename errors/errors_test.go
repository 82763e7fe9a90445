package errors

import (
	stdlib "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCause(t *testing.T) {
	std := stdlib.New("this is a stdlib error")

	cases := map[string]struct {
		err  error
		root error
	}{
		"Errors are self-causing": {
			err:  ErrNotFound,
			root: ErrNotFound,
		},
		"Wrap reveals root cause": {
			err:  Wrap(ErrNotFound, "foo"),
			root: ErrNotFound,
		},
		"Cause works for stderr as root": {
			err:  Wrap(std, "Some helpful text"),
			root: std,
		},
	}

	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := errors.Cause(tc.err); got != tc.root {
				t.Fatal("unexpected result")
			}
		})
	}
}

func TestErrorIs(t *testing.T) {
	cases := map[string]struct {
		a      *Error
		b      error
		wantIs bool
	}{
		"instance of the same error": {
			a:      ErrNotFound,
			b:      ErrNotFound,
			wantIs: true,
		},
		"two different coded errors": {
			a:      ErrNotFound,
			b:      ErrModel,
			wantIs: false,
		},
		"successful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrNotFound, "gone"),
			wantIs: true,
		},
		"unsuccessful comparison to a wrapped error": {
			a:      ErrNotFound,
			b:      errors.Wrap(ErrInput, "nope"),
			wantIs: false,
		},
		"not equal to stdlib error": {
			a:      ErrNotFound,
			b:      fmt.Errorf("stdlib error"),
			wantIs: false,
		},
		"doubly wrapped": {
			a:      ErrSignatureEncoding,
			b:      Wrap(Wrap(ErrSignatureEncoding, "short"), "slot 2"),
			wantIs: true,
		},
		"nil is nil": {
			a:      nil,
			b:      nil,
			wantIs: true,
		},
		"nil is not not-nil": {
			a:      nil,
			b:      ErrNotFound,
			wantIs: false,
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			if got := tc.a.Is(tc.b); got != tc.wantIs {
				t.Fatalf("unexpected result - got %v", got)
			}
		})
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() { Register(ErrNotFound.Code(), "again") })
}

func TestWrapNil(t *testing.T) {
	assert.Nil(t, Wrap(nil, "nothing"))
	assert.Nil(t, Wrapf(nil, "nothing %d", 1))
}

func TestRecover(t *testing.T) {
	run := func() (err error) {
		defer Recover(&err)
		panic("boom")
	}
	err := run()
	assert.True(t, ErrPanic.Is(err))
	assert.Contains(t, err.Error(), "boom")
}

func TestStackTrace(t *testing.T) {
	err := Wrap(fmt.Errorf("indirect"), "do the do")
	assert.Equal(t, "do the do: indirect", err.Error())
	assert.NotNil(t, stackTrace(err))

	full := fmt.Sprintf("%+v", err)
	assert.Contains(t, full, "errors_test.go")

	tiny := fmt.Sprintf("%v", err)
	assert.True(t, strings.HasPrefix(tiny, "do the do: indirect"))
	assert.False(t, strings.Contains(tiny, "\n"), "only one line is expected")
	assert.Contains(t, tiny, "[errors/errors_test.go:")
}

func TestHTTPInfo(t *testing.T) {
	cases := map[string]struct {
		err        error
		debug      bool
		wantStatus int
		wantMsg    string
	}{
		"nil": {
			err:        nil,
			wantStatus: http.StatusOK,
			wantMsg:    "",
		},
		"client error keeps message": {
			err:        ErrKeyEncoding.New("expected 33 or 65 bytes"),
			wantStatus: http.StatusBadRequest,
			wantMsg:    "expected 33 or 65 bytes: invalid key encoding",
		},
		"resource failure": {
			err:        Wrap(ErrResource, "sync"),
			wantStatus: http.StatusBadGateway,
			wantMsg:    "sync: resource",
		},
		"protocol violation is a server error": {
			err:        ErrProtocolViolation.New("finalized"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "finalized: protocol violation",
		},
		"stdlib errors are redacted": {
			err:        fmt.Errorf("secret path /etc/keys"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal error",
		},
		"panics are redacted": {
			err:        Wrap(ErrPanic, "nil map"),
			wantStatus: http.StatusInternalServerError,
			wantMsg:    "internal error",
		},
	}
	for testName, tc := range cases {
		t.Run(testName, func(t *testing.T) {
			status, msg := HTTPInfo(tc.err, tc.debug)
			assert.Equal(t, tc.wantStatus, status)
			assert.Equal(t, tc.wantMsg, msg)
		})
	}

	_, msg := HTTPInfo(fmt.Errorf("secret"), true)
	assert.Contains(t, msg, "secret")

	assert.True(t, IsClientError(ErrProposal.New("no notes")))
	assert.False(t, IsClientError(ErrResource.New("down")))
}
