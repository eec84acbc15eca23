package wallet

import (
	"github.com/shopspring/decimal"

	"staybook/internal/domain/wallet"
	"staybook/internal/pkg/ids"
)

type WithdrawRequest struct {
	AccountID   ids.AccountID   `validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=500"`
}

type withdrawBody struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type TransactionsQuery struct {
	Type  wallet.TransactionType `form:"type"`
	Limit int                    `form:"limit"`
}

type WithdrawResult struct {
	Wallet      *wallet.Wallet      `json:"wallet"`
	Transaction *wallet.Transaction `json:"transaction"`
}
