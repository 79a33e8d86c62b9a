package identity

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		valid bool
	}{
		{"simple", "jdoe", true},
		{"all allowed punctuation", "o'brien.j_d-2", true},
		{"digits only", "20190042", true},
		{"max length", strings.Repeat("a", 50), true},
		{"too long", strings.Repeat("a", 51), false},
		{"empty", "", false},
		{"space", "j doe", false},
		{"slash", "j/doe", false},
		{"at sign", "jdoe@example.com", false},
		{"percent", "j%20doe", false},
		{"latin1 garbage", "jdéoe", false},
		{"control char", "jdoe\x00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.in)
			if tt.valid && err != nil {
				t.Errorf("Validate(%q) = %v, want nil", tt.in, err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalid) {
				t.Errorf("Validate(%q) = %v, want ErrInvalid", tt.in, err)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	if got := Email("jdoe", "school.example"); got != "jdoe@school.example" {
		t.Errorf("Email = %q", got)
	}
}
