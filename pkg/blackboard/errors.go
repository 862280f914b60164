package blackboard

import "errors"

// Sentinel errors returned by Blackboard operations. these
// operations never panic; a violated invariant is always a typed error the
// caller (the Cycle Runner) is expected to treat as fatal to the cycle, not
// the session.
var (
	// ErrClaimAlreadyNull names the null-current_claim condition. No
	// Blackboard method returns it: UpdateClaim does not inspect the old
	// value and installs the new text even when current_claim is null.
	ErrClaimAlreadyNull = errors.New("blackboard: current_claim is already null")

	// ErrFrontierExists names the duplicate-id condition. AddFrontier does
	// not return it: adding an existing id is a silent no-op (see AddFrontier
	// doc).
	ErrFrontierExists = errors.New("blackboard: frontier id already exists")

	// ErrFrontierNotFound is returned by Sponsor/ActivateFrontier for an
	// unknown idea id.
	ErrFrontierNotFound = errors.New("blackboard: frontier id not found")

	// ErrFrontierActivated is returned by ActivateFrontier when the idea was
	// already activated — an activated frontier is never selected again.
	ErrFrontierActivated = errors.New("blackboard: frontier already activated")

	// ErrNoFrontiersAvailable is returned by frontier selection when the pool
	// is entirely empty — this is not a cycle-fatal error; callers route it
	// to session completion ("no frontiers", step 2).
	ErrNoFrontiersAvailable = errors.New("blackboard: no frontiers available")

	// ErrEmptyClaim is returned by UpdateClaim when given blank text.
	ErrEmptyClaim = errors.New("blackboard: claim text must not be empty")
)
