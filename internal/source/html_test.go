package source

import "testing"

func TestStripHTML(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text", "  plain   text ", "plain text"},
		{"tags removed", "<p>Hello <b>world</b></p>", "Hello world"},
		{"entities decoded", "<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
		{"nested markup", `<div><a href="x">link</a> and <span>more</span></div>`, "link and more"},
		{"empty", "   ", ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripHTML(tc.input); got != tc.want {
				t.Fatalf("StripHTML mismatch\nwant: %q\ngot:  %q", tc.want, got)
			}
		})
	}
}
