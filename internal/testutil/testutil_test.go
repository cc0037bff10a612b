package testutil

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

type codeError struct{ code int }

func (e *codeError) Error() string { return fmt.Sprintf("code %d", e.code) }

// recorder captures failures instead of failing the enclosing test.
type recorder struct {
	testing.TB
	failed bool
}

func (r *recorder) Helper()               {}
func (r *recorder) Errorf(string, ...any) { r.failed = true }
func (r *recorder) Fatalf(string, ...any) { r.failed = true }
func (r *recorder) Fatal(...any)          { r.failed = true }

func TestAssertNoError(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	AssertNoError(r, nil)
	if r.failed {
		t.Error("nil error reported as failure")
	}

	r = &recorder{}
	AssertNoError(r, errors.New("boom"))
	if !r.failed {
		t.Error("expected failure for non-nil error")
	}
}

func TestAssertError(t *testing.T) {
	t.Parallel()

	r := &recorder{}
	AssertError(r, errors.New("test error"))
	if r.failed {
		t.Error("non-nil error reported as failure")
	}

	r = &recorder{}
	AssertError(r, nil)
	if !r.failed {
		t.Error("expected failure for nil error")
	}
}

func TestAssertClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		got, want float64
		wantFail  bool
	}{
		{name: "last digit", got: 28.085958601002872, want: 28.08595860100288},
		{name: "relative", got: 1e12, want: 1e12 + 1},
		{name: "absolute near zero", got: 0, want: 1e-12},
		{name: "too far apart", got: 1, want: 1.001, wantFail: true},
	}
	for _, tt := range tests {
		r := &recorder{}
		AssertClose(r, tt.got, tt.want, DefaultTolerance)
		if r.failed != tt.wantFail {
			t.Errorf("%s: failed = %v, want %v", tt.name, r.failed, tt.wantFail)
		}
	}
}

func TestErrorAs(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrapped: %w", &codeError{code: 7})
	ce := ErrorAs[*codeError](t, err)
	if ce.code != 7 {
		t.Errorf("code = %d, want 7", ce.code)
	}

	r := &recorder{}
	ErrorAs[*codeError](r, errors.New("plain"))
	if !r.failed {
		t.Error("expected failure for an unrelated error")
	}
}

func TestWriteFile(t *testing.T) {
	t.Parallel()

	path := WriteFile(t, "nested/dir/file.json", `{"a": 1}`)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"a": 1}` {
		t.Errorf("content = %q", data)
	}
}
