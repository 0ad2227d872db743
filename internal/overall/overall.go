// Package overall summarizes the checks of one lookup into a single verdict.
package overall

import "github.com/tmater/pulse/internal/proto"

// Evaluate returns Up when every attempted check passed, Down when every
// attempted check failed and Degraded when they disagree. Checks that were
// not attempted do not count. If nothing was attempted the verdict is empty.
func Evaluate(outcomes ...proto.Outcome) proto.Overall {
	attempted, up := 0, 0
	for _, o := range outcomes {
		if !o.Attempted {
			continue
		}
		attempted++
		if o.OK {
			up++
		}
	}

	switch {
	case attempted == 0:
		return ""
	case up == attempted:
		return proto.Up
	case up == 0:
		return proto.Down
	default:
		return proto.Degraded
	}
}
