package format

import "testing"

func TestMD(t *testing.T) {
	cases := map[string]string{
		"road_trip *2024*": `road\_trip \*2024\*`,
		"[mix]`":           "\\[mix\\]\\`",
		"a.b-c!":           "a.b-c!",
	}
	for in, want := range cases {
		if got := MD(in); got != want {
			t.Fatalf("MD(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeref(t *testing.T) {
	cover := "cover"
	if got := Deref(&cover, ""); got != "cover" {
		t.Fatalf("Deref = %q", got)
	}
	if got := Deref[string](nil, "none"); got != "none" {
		t.Fatalf("Deref(nil) = %q", got)
	}
	if got := Deref[int64](nil, 7); got != 7 {
		t.Fatalf("Deref(nil) = %d", got)
	}
}
