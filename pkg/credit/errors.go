package credit

import (
	"errors"
	"fmt"
)

var (
	// ErrWalletNotFound means a user has no wallet row. Wallets are created at registration,
	// so this is a data-integrity failure and is never repaired lazily.
	ErrWalletNotFound = errors.New("wallet not found")
	ErrInvalidTool    = errors.New("invalid or unconfigured tool")
	ErrToolDisabled   = errors.New("this tool is currently disabled")
)

// ErrRequestNotPending means the usage record was finalized elsewhere, usually by the
// stale sweeper, before the charge committed. The charge is rolled back.
var ErrRequestNotPending = errors.New("request expired before it could be charged")

type InsufficientCreditsError struct {
	Required  int
	Available int
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: required %d, available %d", e.Required, e.Available)
}

type CooldownActiveError struct {
	RemainingSeconds int
}

func (e *CooldownActiveError) Error() string {
	return fmt.Sprintf("please wait %d seconds before using this tool again", e.RemainingSeconds)
}

func IsInsufficientCredits(err error) bool {
	var target *InsufficientCreditsError
	return errors.As(err, &target)
}
