// Package tests holds assertion helpers shared by the test suites.
package tests

import (
	"reflect"
	"strings"
	"testing"
)

func AssertIsNil(t *testing.T, v interface{}) {
	t.Helper()
	if !isNil(v) {
		t.Errorf("[%v] was expected to be nil", v)
	}
}

func AssertNotNil(t *testing.T, v interface{}) {
	t.Helper()
	if isNil(v) {
		t.Fatalf("[%v] was expected to be non-nil", v)
	}
}

func AssertEqual(t *testing.T, e, g interface{}) {
	t.Helper()
	if !reflect.DeepEqual(e, g) {
		t.Errorf("Expected [%+v], got [%+v]", e, g)
	}
}

func AssertTrue(t *testing.T, ok bool, msg string) {
	t.Helper()
	if !ok {
		t.Errorf("%s", msg)
	}
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Error occurred [%v]", err)
	}
}

func AssertErrorContains(t *testing.T, err error, s string) {
	t.Helper()
	if err == nil {
		t.Error("err is nil")
		return
	}
	if !strings.Contains(err.Error(), s) {
		t.Errorf("%q is not included in error %q", s, err.Error())
	}
}

func AssertContains(t *testing.T, s, substr string, shouldContain bool) {
	t.Helper()
	s = strings.ToLower(s)
	isContain := strings.Contains(s, substr)
	if shouldContain {
		if !isContain {
			t.Errorf("%q is not included in %s", substr, s)
		}
	} else {
		if isContain {
			t.Errorf("%q is included in %q", substr, s)
		}
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Ptr, reflect.Slice:
		return rv.IsNil()
	}
	return false
}
