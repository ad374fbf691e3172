// Package domain defines the core types of the builder trades dashboard:
// the builder-attributed trade record, the singleton sync state, and the
// interfaces the sync engine and HTTP layer depend on.
package domain

import (
	"encoding/json"
	"time"
)

// UnknownWallet is the sentinel wallet attribution used when a trade carries
// no maker, owner, or builder address.
const UnknownWallet = "unknown"

// Trade is a builder-attributed trade as stored locally. The primary key is
// the remote-assigned trade ID; re-syncing the same ID overwrites every
// mutable field.
type Trade struct {
	ID              string
	BuilderAPIKey   string
	WalletAddress   string
	Market          string
	AssetID         string
	Side            string
	SizeUSDC        string // decimal numeric string, "0" when the remote value is not finite
	MatchTime       *time.Time
	TransactionHash string
	RawJSON         json.RawMessage // original remote record, kept verbatim for audit
}

// SyncStateID is the fixed key of the singleton sync_state row.
const SyncStateID = 1

// SyncState is the singleton watermark record for the builder feed. Exactly
// one row exists, keyed by SyncStateID.
type SyncState struct {
	// LastSyncedMatchTime is the maximum match time observed across all
	// synced trades. It never regresses.
	LastSyncedMatchTime *time.Time
	// LastSyncedCursor is the last pagination cursor the most recent run
	// advanced past, or nil if no run made forward progress.
	LastSyncedCursor *string
	// LastRunAt is when the most recent sync run completed.
	LastRunAt *time.Time
}

// SyncReport summarizes a completed sync run.
type SyncReport struct {
	Fetched  int
	Upserted int
	State    SyncState
}

// ConnectionStatus is the result of a builder feed connectivity probe. It is
// always produced, never raised as an error.
type ConnectionStatus struct {
	Connected     bool   `json:"connected"`
	Mode          string `json:"mode"`
	Host          string `json:"host"`
	Error         string `json:"error,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
}

// TradePage is one page of the remote builder trade feed.
type TradePage struct {
	Trades     []RawTrade
	NextCursor string
	Count      int
	Limit      int
}

// RawTrade pairs the decoded fields of a remote trade record with the
// verbatim JSON it was decoded from.
type RawTrade struct {
	ID              string
	Maker           string
	Owner           string
	Builder         string
	Market          string
	AssetID         string
	Side            string
	SizeUSDC        string
	MatchTime       string
	TransactionHash string
	Raw             json.RawMessage
}

// TradeFilter narrows trade queries. Zero values mean "no constraint".
type TradeFilter struct {
	Wallet      string // substring match on wallet_address
	MarketAsset string // substring match on market OR asset_id
	Side        string // exact match
	Start       *time.Time
	End         *time.Time
}

// ListOpts provides pagination and ordering for trade list queries.
type ListOpts struct {
	SortBy  string
	SortDir string // "asc" or "desc"
	Limit   int
	Offset  int
}

// TradeSummary aggregates the filtered trade set for the dashboard header.
type TradeSummary struct {
	TotalTrades   int64  `json:"totalTrades"`
	VolumeUSDC    string `json:"builderVolumeUsdc"`
	AvgSizeUSDC   string `json:"avgTradeSizeUsdc"`
	VolumeToday   string `json:"volumeTodayUsdc"`
	Volume7d      string `json:"volume7dUsdc"`
	Volume30d     string `json:"volume30dUsdc"`
	TradesToday   int64  `json:"tradesToday"`
	UniqueWallets int64  `json:"uniqueWallets"`
}
