package utils

import "testing"

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 5, "hello..."},
		{"x", 0, "x"},
		{"héllo wörld", 4, "héll..."},
		{"日本語テキスト", 3, "日本語..."},
	}
	for _, tt := range tests {
		if got := Truncate(tt.in, tt.max); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}

func TestFirstLine(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		dropped bool
	}{
		{"func f() {}", "func f() {}", false},
		{"func f() {\n}", "func f() {", true},
		{"a\r\nb", "a", true},
		{"", "", false},
	}
	for _, tt := range tests {
		got, dropped := FirstLine(tt.in)
		if got != tt.want || dropped != tt.dropped {
			t.Errorf("FirstLine(%q) = %q, %v; want %q, %v", tt.in, got, dropped, tt.want, tt.dropped)
		}
	}
}
