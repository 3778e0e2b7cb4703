// Package version checks module version constraints against loaded
// manifest version tags. The compatibility rule is explicit: caret
// constraints pin the major version, tilde constraints pin major.minor,
// a bare version means exact equality, and anything else is parsed as a
// comma-separated constraint expression.
package version

import (
	"fmt"
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/spindleworks/spindle/domain/manifest"
)

var bare = regexp.MustCompile(`^\d+(\.\d+)*$`)

// Check reports whether actual satisfies constraint. An empty constraint
// always satisfies. Failures, including unparsable inputs, surface as
// VersionMismatchError naming the module alias.
func Check(alias, constraint, actual string) error {
	constraint = strings.TrimSpace(constraint)
	if constraint == "" {
		return nil
	}

	mismatch := &manifest.VersionMismatchError{
		Alias:      alias,
		Constraint: constraint,
		Actual:     actual,
	}

	v, err := goversion.NewVersion(actual)
	if err != nil {
		return mismatch
	}

	expr, err := normalize(constraint)
	if err != nil {
		return mismatch
	}
	constraints, err := goversion.NewConstraint(expr)
	if err != nil {
		return mismatch
	}
	if !constraints.Check(v) {
		return mismatch
	}
	return nil
}

// normalize rewrites caret and tilde shorthands into range expressions:
// ^X.Y.Z -> ">= X.Y.Z, < X+1.0.0" and ~X.Y.Z -> ">= X.Y.Z, < X.Y+1.0".
// A bare version becomes an exact match; other strings pass through.
func normalize(constraint string) (string, error) {
	switch {
	case strings.HasPrefix(constraint, "^"):
		base, err := goversion.NewVersion(constraint[1:])
		if err != nil {
			return "", err
		}
		segments := base.Segments()
		return fmt.Sprintf(">= %s, < %d.0.0", base.String(), segments[0]+1), nil

	case strings.HasPrefix(constraint, "~"):
		base, err := goversion.NewVersion(constraint[1:])
		if err != nil {
			return "", err
		}
		segments := base.Segments()
		return fmt.Sprintf(">= %s, < %d.%d.0", base.String(), segments[0], segments[1]+1), nil

	case bare.MatchString(constraint):
		return "= " + constraint, nil

	default:
		return constraint, nil
	}
}
