package domain

import (
	"encoding/json"
	"strings"
)

// ExecutionSchema discriminates the two raw execution log formats. The log
// is append-only and the backend has shipped both formats over time, so a
// single fetch can return a mix of the two.
type ExecutionSchema string

const (
	// SchemaLegacy is the single-leg format: one row per leg per attempt.
	SchemaLegacy ExecutionSchema = "legacy"
	// SchemaUnified is the dual-leg format: one row per attempt.
	SchemaUnified ExecutionSchema = "unified"
	// SchemaUnknown marks rows whose shape could not be discriminated.
	// Aggregation drops them silently.
	SchemaUnknown ExecutionSchema = ""
)

// ExecutionStatus is the per-attempt outcome recorded in a unified row.
type ExecutionStatus string

const (
	ExecSuccess    ExecutionStatus = "success"
	ExecFailed     ExecutionStatus = "failed"
	ExecCancelled  ExecutionStatus = "cancelled"
	ExecRolledBack ExecutionStatus = "rolled_back"
)

// ExecutionLegFill carries per-leg fill details embedded in a unified row.
// Either leg may be absent, e.g. when an attempt was cancelled before any
// fill.
type ExecutionLegFill struct {
	Exchange       string         `json:"exchange,omitempty"`
	Symbol         string         `json:"symbol,omitempty"`
	Side           OrderSide      `json:"side,omitempty"`
	InstrumentType InstrumentType `json:"instrumentType,omitempty"`
	OrderID        string         `json:"orderId,omitempty"`
	Price          float64        `json:"price,omitempty"`
	Qty            float64        `json:"qty,omitempty"`
}

// RawExecutionEntry is one immutable fact from the execution log, in either
// the legacy or the unified schema. Entries may be exact duplicates of each
// other (retries, reload re-fetch) and arrive unordered across sources.
type RawExecutionEntry struct {
	StrategyID  string          `json:"planId"`
	Schema      ExecutionSchema `json:"schemaVersion,omitempty"`
	TimestampMs int64           `json:"timestampMs"`
	Qty         float64         `json:"qty"`

	// Legacy (single-leg) fields.
	LegIndex int     `json:"legIndex,omitempty"`
	Success  bool    `json:"success,omitempty"`
	Price    float64 `json:"price,omitempty"`
	OrderID  string  `json:"orderId,omitempty"`

	// Unified (dual-leg) fields.
	Status        ExecutionStatus   `json:"status,omitempty"`
	SpreadPercent float64           `json:"spreadPercent,omitempty"`
	Leg1          *ExecutionLegFill `json:"leg1,omitempty"`
	Leg2          *ExecutionLegFill `json:"leg2,omitempty"`
}

// rawExecutionAlias mirrors RawExecutionEntry for decoding without recursing
// into UnmarshalJSON, plus the field aliases the backend has used.
type rawExecutionAlias struct {
	PlanID      string          `json:"planId"`
	PairID      string          `json:"pairId"`
	Schema      ExecutionSchema `json:"schemaVersion"`
	TimestampMs int64           `json:"timestampMs"`
	Qty         float64         `json:"qty"`

	LegIndex *int    `json:"legIndex"`
	Success  *bool   `json:"success"`
	Price    float64 `json:"price"`
	OrderID  string  `json:"orderId"`

	Status        ExecutionStatus   `json:"status"`
	SpreadPercent float64           `json:"spreadPercent"`
	Leg1          *ExecutionLegFill `json:"leg1"`
	Leg2          *ExecutionLegFill `json:"leg2"`
}

// UnmarshalJSON accepts both raw formats and both strategy-id aliases
// (planId, pairId) and tags the entry with the discriminated schema. Rows
// that fit neither format decode with SchemaUnknown rather than erroring so
// one bad row never aborts a whole envelope.
func (e *RawExecutionEntry) UnmarshalJSON(data []byte) error {
	var a rawExecutionAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}

	e.StrategyID = a.PlanID
	if e.StrategyID == "" {
		e.StrategyID = a.PairID
	}
	e.TimestampMs = a.TimestampMs
	e.Qty = a.Qty
	e.Price = a.Price
	e.OrderID = a.OrderID
	e.SpreadPercent = a.SpreadPercent
	e.Leg1 = a.Leg1
	e.Leg2 = a.Leg2

	if a.LegIndex != nil {
		e.LegIndex = *a.LegIndex
	}
	if a.Success != nil {
		e.Success = *a.Success
	}
	e.Status = ExecutionStatus(strings.ToLower(string(a.Status)))

	switch {
	case a.Schema == SchemaLegacy || a.Schema == SchemaUnified:
		e.Schema = a.Schema
	case e.Status != "":
		e.Schema = SchemaUnified
	case a.LegIndex != nil || a.Success != nil:
		e.Schema = SchemaLegacy
	default:
		e.Schema = SchemaUnknown
	}
	return nil
}

// LegAveragePrices is the backend's per-strategy average fill price report.
type LegAveragePrices struct {
	Leg1AvgPrice float64 `json:"leg1AvgPrice"`
	Leg2AvgPrice float64 `json:"leg2AvgPrice"`
}

// SummaryStatus is the resolved final status of a strategy's execution
// group. Precedence, highest first: failed > cancelled > rolled_back >
// completed.
type SummaryStatus string

const (
	SummaryCompleted  SummaryStatus = "completed"
	SummaryRolledBack SummaryStatus = "rolled_back"
	SummaryCancelled  SummaryStatus = "cancelled"
	SummaryFailed     SummaryStatus = "failed"
)

// LegMeta is denormalized leg labeling carried on a summary so it stays
// displayable after the originating pair config has been deleted.
type LegMeta struct {
	Exchange       string         `json:"exchange"`
	Symbol         string         `json:"symbol"`
	Side           OrderSide      `json:"side"`
	InstrumentType InstrumentType `json:"instrumentType"`
}

// StrategySummary is the idempotent aggregate over all raw entries sharing a
// strategy id. It is recomputed from scratch on every aggregation pass and
// never incrementally mutated.
type StrategySummary struct {
	StrategyID       string        `json:"strategyId"`
	SuccessCount     int           `json:"successCount"`
	TotalQty         float64       `json:"totalQty"`
	AvgSpreadPercent float64       `json:"avgSpreadPercent"`
	Status           SummaryStatus `json:"status"`
	LastTimestampMs  int64         `json:"lastTimestampMs"`
	Leg1             LegMeta       `json:"leg1"`
	Leg2             LegMeta       `json:"leg2"`
	Leg1AvgPrice     float64       `json:"leg1AvgPrice,omitempty"`
	Leg2AvgPrice     float64       `json:"leg2AvgPrice,omitempty"`
}
