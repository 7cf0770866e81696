package api

import "github.com/futarchy-tools/arbot/pkg/bot"

// BotInfo is the static identity shown by the status endpoint.
type BotInfo struct {
	BotType   string `json:"bot_type"`
	Proposal  string `json:"proposal"`
	Executor  string `json:"executor"`
	Wallet    string `json:"wallet"`
	Amount    string `json:"amount"`
	Interval  string `json:"interval"`
	Tolerance string `json:"tolerance"`
	MinProfit string `json:"min_profit"`
	DryRun    bool   `json:"dry_run"`
}

// StatusResponse reports the controller's current position in its loop.
type StatusResponse struct {
	Bot      BotInfo         `json:"bot"`
	Tick     uint64          `json:"tick"`
	Outcome  bot.Outcome     `json:"outcome,omitempty"`
	LastTick *bot.TickReport `json:"last_tick,omitempty"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// WSSubscribeRequest is the client -> server subscription frame.
type WSSubscribeRequest struct {
	Op       string   `json:"op"`
	Channels []string `json:"channels"`
}

// TickUpdate is the frame broadcast to ws subscribers of "ticks".
type TickUpdate struct {
	Type   string         `json:"type"`
	Report bot.TickReport `json:"report"`
}
