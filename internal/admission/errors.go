package admission

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when the target promotion does not exist.
var ErrNotFound = errors.New("promotion not found")

// Code names the cap a rejected mutation would have violated.
type Code string

const (
	// CodePriorityLimit: the mutation would push the count of
	// concurrently-eligible priority promotions over the cap.
	CodePriorityLimit Code = "PRIORITY_LIMIT"
	// CodeActiveOverlapLimit: the deployment-wide cap on concurrently
	// eligible promotions of any tier would be exceeded.
	CodeActiveOverlapLimit Code = "ACTIVE_OVERLAP_LIMIT"
)

// Error is an admission rejection. It is an expected outcome of
// AttemptActivate, not a fault: callers branch on Code and show Conflicts
// (titles of the currently-eligible blockers) so the operator can pick one
// to deactivate.
type Error struct {
	Code      Code
	Conflicts []string
}

func (e *Error) Error() string {
	return fmt.Sprintf("admission rejected (%s): conflicts with %s",
		e.Code, strings.Join(e.Conflicts, ", "))
}
