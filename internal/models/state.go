package models

// Status is the engine's lifecycle state.
type Status string

const (
	StatusIdle             Status = "IDLE"
	StatusWaitingForExpiry Status = "WAITING_FOR_EXPIRY"
	StatusExitDone         Status = "EXIT_DONE"
	StatusEntryDone        Status = "ENTRY_DONE"
	StatusActive           Status = "ACTIVE"
	StatusForceExited      Status = "FORCE_EXITED"
)

// EngineState is the persisted snapshot of the engine's singleton state.
// Monitoring timers are deliberately absent: confirmation progress is not
// persisted and resets to zero on every process restart.
type EngineState struct {
	Status      Status  `json:"status"`
	Virtual     bool    `json:"virtual"`
	Paused      bool    `json:"paused"`
	TradePlaced bool    `json:"trade_placed"`
	Pnl         float64 `json:"pnl"`
	PeakProfit  float64 `json:"peak_profit"`
	PeakLoss    float64 `json:"peak_loss"`
	Expiry      string  `json:"expiry"`
	EnteredAt   string  `json:"entered_at"`
	ExitedAt    string  `json:"exited_at"`
	EntryTime   string  `json:"entry_time"`
	ExitTime    string  `json:"exit_time"`
	TargetPnl   float64 `json:"target_pnl"`
	StopLossPnl float64 `json:"stop_loss_pnl"`
}

// ControlFlags are the operator-controlled fields shared between the run
// daemon and control commands issued from other processes. They live in
// their own store row so tick-path state flushes can never overwrite an
// operator's change.
type ControlFlags struct {
	Paused      bool    `json:"paused"`
	Virtual     bool    `json:"virtual"`
	EntryTime   string  `json:"entry_time"`
	ExitTime    string  `json:"exit_time"`
	TargetPnl   float64 `json:"target_pnl"`
	StopLossPnl float64 `json:"stop_loss_pnl"`
}

// Settings are the operator-tunable engine parameters.
type Settings struct {
	EntryTime   string  `json:"entry_time"`
	ExitTime    string  `json:"exit_time"`
	TargetPnl   float64 `json:"target_pnl"`
	StopLossPnl float64 `json:"stop_loss_pnl"`
	Virtual     *bool   `json:"virtual,omitempty"`
}
