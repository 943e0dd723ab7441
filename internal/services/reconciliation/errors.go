package reconciliation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Every failure below is scoped to a single request and leaves prior state
// unchanged; import and confirm both run inside one transaction.
var (
	// ErrDuplicateImport rejects a statement whose line range was already
	// imported. Nothing from the file is written.
	ErrDuplicateImport = errors.New("reconciliation: statement line range already imported")

	// ErrDuplicateMovement rejects a second reconciliation record for the
	// same movement.
	ErrDuplicateMovement = errors.New("reconciliation: movement already has a reconciliation record")

	// ErrAlreadyConfirmed rejects any transition out of confirmed.
	ErrAlreadyConfirmed = errors.New("reconciliation: movement already confirmed")

	// ErrNotConfirmed rejects correcting a movement that has no confirmed
	// pairing to supersede.
	ErrNotConfirmed = errors.New("reconciliation: movement is not confirmed")

	// ErrStaleEntry means the chosen ledger entry was settled by a concurrent
	// confirmation since suggestions were computed.
	ErrStaleEntry = errors.New("reconciliation: ledger entry no longer open")
)

// AmountMismatchError rejects confirming an entry whose amount is outside the
// tolerance of the movement amount.
type AmountMismatchError struct {
	MovementAmount decimal.Decimal
	EntryAmount    decimal.Decimal
	Tolerance      decimal.Decimal
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("reconciliation: entry amount %s does not match movement amount %s within tolerance %s",
		e.EntryAmount, e.MovementAmount, e.Tolerance)
}
