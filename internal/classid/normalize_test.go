package classid

import "testing"

func TestNormalizeAliases(t *testing.T) {
	cases := map[string]string{
		"Vase":          "vase",
		"  VASES ":      "vase",
		"pipe":          "vase",
		"object_vase":   "vase",
		"Side Table":    "table",
		"tables":        "table",
		"bar_stool":     "stool",
		"Object-Stool-": "stool",
		"lamp shade":    "lamp-shade",
		"":              "",
		" - ":           "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q) = %q, want %q", in, got, want)
		}
	}
}
