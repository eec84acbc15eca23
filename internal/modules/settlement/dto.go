package settlement

import (
	"time"

	"staybook/internal/domain/wallet"
	"staybook/internal/pkg/ids"
)

type SettleRequest struct {
	WalletID    ids.WalletID  `json:"wallet_id" validate:"required"`
	PeriodStart time.Time     `json:"period_start" validate:"required"`
	PeriodEnd   time.Time     `json:"period_end" validate:"required"`
	Actor       ids.AccountID `json:"-"`
}

type settleBody struct {
	WalletID    ids.WalletID `json:"wallet_id" binding:"required"`
	PeriodStart string       `json:"period_start" binding:"required"`
	PeriodEnd   string       `json:"period_end" binding:"required"`
}

type Action string

const (
	ActionProcess  Action = "process"
	ActionComplete Action = "complete"
	ActionFail     Action = "fail"
	ActionCancel   Action = "cancel"
)

// TransitionRequest moves a settlement along its lifecycle. A zero Actor
// is the batch.
type TransitionRequest struct {
	SettlementID ids.SettlementID `validate:"required"`
	Action       Action           `validate:"oneof=process complete fail cancel"`
	Reason       string           `validate:"max=1000"`
	Actor        ids.AccountID
}

type failBody struct {
	Reason string `json:"reason"`
}

// Summary reports a SettleAll run.
type Summary struct {
	Created []wallet.Settlement `json:"created"`
	Skipped int                 `json:"skipped"`
	Failed  int                 `json:"failed"`
}
