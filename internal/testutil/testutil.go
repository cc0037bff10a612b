// Package testutil provides shared test helpers for the model, scenario and
// sweep packages.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

// DefaultTolerance is the absolute or relative tolerance used by AssertClose
// when comparing against reference accelerations.
const DefaultTolerance = 1e-9

// ReferenceTolerance bounds the difference from reference accelerations
// computed with another libm. Last-ulp differences in atan and tan are scaled
// by lambda/dt (600 in the regression scenario), which moves the result by
// under 1e-13.
const ReferenceTolerance = 1e-12

// AssertNoError fails the test if err is not nil.
func AssertNoError(t testing.TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t testing.TB, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}

// AssertClose fails the test unless got and want agree within tol, either
// absolutely or relative to their magnitude.
func AssertClose(t testing.TB, got, want, tol float64) {
	t.Helper()
	if !scalar.EqualWithinAbsOrRel(got, want, tol, tol) {
		t.Errorf("got %.17g, want %.17g (tol %g)", got, want, tol)
	}
}

// ErrorAs fails the test unless err wraps an error of type E, and returns it.
func ErrorAs[E error](t testing.TB, err error) E {
	t.Helper()
	var target E
	if !errors.As(err, &target) {
		t.Fatalf("error %v (%T) is not a %T", err, err, target)
	}
	return target
}

// WriteFile writes content to name inside a fresh temporary directory and
// returns the full path.
func WriteFile(t testing.TB, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
