package envutil

import (
	"testing"
	"time"
)

func TestBool(t *testing.T) {
	cases := map[string]bool{"": true, "yes": true, "off": false, "0": false, "garbage": true}
	for raw, want := range cases {
		t.Setenv("ENVUTIL_TEST_BOOL", raw)
		if got := Bool("ENVUTIL_TEST_BOOL", true); got != want {
			t.Fatalf("Bool(%q): got=%v want=%v", raw, got, want)
		}
	}
}

func TestSecondsFallsBackOnNonPositive(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_SECONDS", "-3")
	if got := Seconds("ENVUTIL_TEST_SECONDS", 7*time.Second); got != 7*time.Second {
		t.Fatalf("unexpected duration: got=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_SECONDS", "12")
	if got := Seconds("ENVUTIL_TEST_SECONDS", 7*time.Second); got != 12*time.Second {
		t.Fatalf("unexpected duration: got=%v", got)
	}
}

func TestFloat(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_FLOAT", "0.25")
	if got := Float("ENVUTIL_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("unexpected float: got=%v", got)
	}
	t.Setenv("ENVUTIL_TEST_FLOAT", "nope")
	if got := Float("ENVUTIL_TEST_FLOAT", 1); got != 1 {
		t.Fatalf("unexpected fallback: got=%v", got)
	}
}

func TestList(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_LIST", " a, ,b ,")
	got := List("ENVUTIL_TEST_LIST")
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected list: %v", got)
	}
	t.Setenv("ENVUTIL_TEST_LIST", "")
	if got := List("ENVUTIL_TEST_LIST"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
