package rules

import "balmar-shop/internal/models"

// Action is an external event that moves a transaction forward
type Action string

// Known actions. The machine accepts any string; only PAY_DEPOSIT and
// VALIDATE change the outcome of a transition.
const (
	ActionPayDeposit Action = "PAY_DEPOSIT"
	ActionPay        Action = "PAY"
	ActionShip       Action = "SHIP"
	ActionDeliver    Action = "DELIVER"
	ActionValidate   Action = "VALIDATE"
	ActionDispute    Action = "DISPUTE"
	ActionCancel     Action = "CANCEL"
)

// NextStatus maps (current, action) to the next status. It is total: unknown
// combinations leave the status unchanged. Cancellation is not reachable from
// here; use Cancel.
func NextStatus(current models.TransactionStatus, action Action) models.TransactionStatus {
	switch current {
	case models.TransactionStatusCreated:
		if action == ActionPayDeposit {
			return models.TransactionStatusDepositPaid
		}
		return models.TransactionStatusPaidEscrow

	case models.TransactionStatusDepositPaid, models.TransactionStatusPaidEscrow:
		return models.TransactionStatusShipped

	case models.TransactionStatusShipped:
		return models.TransactionStatusDelivered

	case models.TransactionStatusDelivered:
		// withdrawal period over or buyer validated
		if action == ActionValidate {
			return models.TransactionStatusCompleted
		}
		return models.TransactionStatusDispute

	case models.TransactionStatusAwaitingDeposit,
		models.TransactionStatusCompleted,
		models.TransactionStatusDispute,
		models.TransactionStatusCancelled:
		return current
	}
	return current
}

// IsTerminal reports whether no further transition can leave status
func IsTerminal(status models.TransactionStatus) bool {
	return status == models.TransactionStatusCompleted || status == models.TransactionStatusCancelled
}

// Cancel returns CANCELLED and true unless the transaction is already terminal
func Cancel(current models.TransactionStatus) (models.TransactionStatus, bool) {
	if IsTerminal(current) {
		return current, false
	}
	return models.TransactionStatusCancelled, true
}

// ValidStatus reports whether status is one of the known states
func ValidStatus(status models.TransactionStatus) bool {
	switch status {
	case models.TransactionStatusCreated,
		models.TransactionStatusAwaitingDeposit,
		models.TransactionStatusDepositPaid,
		models.TransactionStatusPaidEscrow,
		models.TransactionStatusShipped,
		models.TransactionStatusDelivered,
		models.TransactionStatusCompleted,
		models.TransactionStatusDispute,
		models.TransactionStatusCancelled:
		return true
	}
	return false
}
