package service

import "testing"

func TestCleanText(t *testing.T) {
	cases := []struct{ in, want string }{
		{"plain text", "plain text"},
		{"\ufeffwith bom", "with bom"},
		{"line one\r\nline two", "line one\nline two"},
		{"old mac\rline", "old mac\nline"},
		{"mixed\r\nand\rboth", "mixed\nand\nboth"},
		{"", ""},
	}
	for _, c := range cases {
		if got := CleanText(c.in); got != c.want {
			t.Fatalf("CleanText(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanTextKeepsInteriorBOM(t *testing.T) {
	in := "start\ufeffmiddle"
	if got := CleanText(in); got != in {
		t.Fatalf("interior BOM must survive, got %q", got)
	}
}
