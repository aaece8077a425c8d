package respondcache

import "testing"

func TestNormalizeLine(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases", "Hey There EVERYONE", "hey there everyone"},
		{"strips punctuation", "hey, there... everyone!!", "hey there everyone"},
		{"collapses whitespace", "hey   there\teveryone", "hey there everyone"},
		{"empty", "", ""},
		{"punctuation only", "?!.,", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeLine(tt.in); got != tt.want {
				t.Errorf("NormalizeLine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBuildKeyStableAcrossVariants(t *testing.T) {
	c := &Cache{}
	base := c.buildKey("hey there everyone")
	for _, variant := range []string{
		"Hey There Everyone",
		"hey, there, everyone!",
		"  hey   there   everyone  ",
	} {
		if got := c.buildKey(variant); got != base {
			t.Errorf("buildKey(%q) = %q, want %q", variant, got, base)
		}
	}
	if other := c.buildKey("hey there crabs"); other == base {
		t.Error("distinct lines must not share a key")
	}
}
