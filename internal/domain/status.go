package domain

import "fmt"

var purchaseTransitions = map[PurchaseStatus][]PurchaseStatus{
	PurchasePending: {PurchaseActive, PurchaseCancelled},
	PurchaseActive:  {PurchaseUsed, PurchaseCancelled},
}

var transactionTransitions = map[TransactionStatus][]TransactionStatus{
	TxPending: {TxSuccess, TxFailed},
	TxSuccess: {TxCancelled},
}

func (s PurchaseStatus) Valid() bool {
	switch s {
	case PurchasePending, PurchaseActive, PurchaseUsed, PurchaseCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves this status.
func (s PurchaseStatus) IsTerminal() bool {
	return s == PurchaseUsed || s == PurchaseCancelled
}

// Holds reports whether a purchase in this status counts against capacity,
// per-account caps and seat uniqueness.
func (s PurchaseStatus) Holds() bool {
	return s == PurchaseActive || s == PurchaseUsed
}

func (s PurchaseStatus) CanTransition(to PurchaseStatus) bool {
	for _, next := range purchaseTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckPurchaseTransition returns ErrInvalidTransition unless from -> to is
// one of PENDING->ACTIVE, ACTIVE->USED, PENDING|ACTIVE->CANCELLED.
func CheckPurchaseTransition(from, to PurchaseStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: purchase %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

func (s TransactionStatus) CanTransition(to TransactionStatus) bool {
	for _, next := range transactionTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func CheckTransactionTransition(from, to TransactionStatus) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("%w: transaction %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// TerminalError maps a terminal purchase status to the error a caller
// should see when trying to act on it.
func (s PurchaseStatus) TerminalError() error {
	switch s {
	case PurchaseUsed:
		return ErrAlreadyUsed
	case PurchaseCancelled:
		return ErrAlreadyCancelled
	}
	return nil
}
