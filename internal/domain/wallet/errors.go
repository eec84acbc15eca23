package wallet

import "staybook/internal/pkg/apperr"

var (
	ErrInvalidTransactionAmount = apperr.Validation("Wallet.InvalidTransactionAmount", "amount must be greater than zero")
	ErrInsufficientFunds        = apperr.Failure("Wallet.InsufficientFunds", "insufficient wallet balance")
	ErrNotFound                 = apperr.NotFound("Wallet.NotFound", "wallet not found")

	ErrInvalidAmount          = apperr.Validation("Transaction.InvalidAmount", "transaction amount cannot be zero")
	ErrInvalidTransactionType = apperr.Validation("Transaction.InvalidType", "unknown transaction type")
	ErrAlreadyCompleted       = apperr.Failure("Transaction.AlreadyCompleted", "transaction is already completed")
	ErrCannotFailCompleted    = apperr.Failure("Transaction.CannotFailCompleted", "a completed transaction cannot fail")
	ErrCannotReverse          = apperr.Failure("Transaction.CannotReverse", "only completed transactions can be reversed")
	ErrTransactionTransition  = apperr.Failure("Transaction.InvalidStatusTransition", "transaction cannot move to the requested status")
	ErrTransactionNotFound    = apperr.NotFound("Transaction.NotFound", "transaction not found")
	ErrMissingEntryTime       = apperr.Validation("Transaction.MissingTime", "transaction time is required")

	ErrInvalidPeriod           = apperr.Validation("Settlement.InvalidPeriod", "settlement period end must be after its start")
	ErrInvalidSettlementAmount = apperr.Validation("Settlement.InvalidAmount", "settlement total must be greater than zero")
	ErrInvalidCommission       = apperr.Validation("Settlement.InvalidCommission", "commission must be between zero and the settlement total")
	ErrCannotCancel            = apperr.Failure("Settlement.CannotCancel", "only pending settlements can be cancelled")
	ErrAlreadyProcessed        = apperr.Failure("Settlement.AlreadyProcessed", "settlement is already completed")
	ErrSettlementTransition    = apperr.Failure("Settlement.InvalidStatusTransition", "settlement cannot move to the requested status")
	ErrSettlementNotFound      = apperr.NotFound("Settlement.NotFound", "settlement not found")
	ErrPeriodAlreadySettled    = apperr.Conflict("Settlement.PeriodAlreadySettled", "an open settlement already covers this period")
	ErrNothingToSettle         = apperr.Failure("Settlement.NothingToSettle", "no completed payments in this period")
)
