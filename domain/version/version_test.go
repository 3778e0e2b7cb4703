package version_test

import (
	"errors"
	"testing"

	"github.com/spindleworks/spindle/domain/manifest"
	"github.com/spindleworks/spindle/domain/version"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		name       string
		constraint string
		actual     string
		ok         bool
	}{
		{"empty constraint", "", "0.0.1", true},
		{"empty constraint empty version", "", "", true},

		{"exact match", "1.2.3", "1.2.3", true},
		{"exact normalized", "1.0", "1.0.0", true},
		{"exact mismatch", "1.2.3", "1.2.4", false},

		{"caret lower bound", "^2.0", "2.0.0", true},
		{"caret within major", "^2.0", "2.9.1", true},
		{"caret next major", "^2.0", "3.0.0", false},
		{"caret below", "^2.0", "1.9.0", false},
		{"caret with patch", "^1.2.3", "1.2.2", false},
		{"caret with patch ok", "^1.2.3", "1.4.0", true},

		{"tilde within minor", "~1.2", "1.2.9", true},
		{"tilde next minor", "~1.2", "1.3.0", false},
		{"tilde below", "~1.2", "1.1.0", false},

		{"range ok", ">= 1.0, < 2.0", "1.5.0", true},
		{"range too high", ">= 1.0, < 2.0", "2.0.0", false},

		{"unparsable actual", "^1.0", "not-a-version", false},
		{"unparsable constraint", "^^!", "1.0.0", false},
		{"empty actual with constraint", "^1.0", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := version.Check("mod", tt.constraint, tt.actual)
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok {
				var mismatch *manifest.VersionMismatchError
				if !errors.As(err, &mismatch) {
					t.Fatalf("expected VersionMismatchError, got %v", err)
				}
				if mismatch.Alias != "mod" {
					t.Errorf("alias = %q", mismatch.Alias)
				}
			}
		})
	}
}
