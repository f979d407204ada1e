package domain

// EventKind tags the variants carried over the core's event bus.
type EventKind string

const (
	EventPriceUpdate        EventKind = "priceUpdate"
	EventExecuted           EventKind = "executed"
	EventFailed             EventKind = "failed"
	EventPairRemoved        EventKind = "pairRemoved"
	EventOpportunityChanged EventKind = "opportunityChanged"
	EventSummariesChanged   EventKind = "summariesChanged"
)

// Event is a typed message published on the core event bus. Inbound push
// notifications and outbound change notifications share the same bus; every
// consumer subscribes explicitly to the kinds it handles.
type Event interface {
	Kind() EventKind
}

// PriceUpdateEvent is a push-delivered pair price sample.
type PriceUpdateEvent struct {
	PairID           string  `json:"pairId"`
	Leg1Tick         Tick    `json:"leg1Tick"`
	Leg2Tick         Tick    `json:"leg2Tick"`
	ThresholdPercent float64 `json:"threshold"`
}

func (PriceUpdateEvent) Kind() EventKind { return EventPriceUpdate }

// ExecutedEvent is a push notification that a strategy executed an attempt.
type ExecutedEvent struct {
	StrategyID string            `json:"strategyId"`
	Entry      RawExecutionEntry `json:"entry"`
}

func (ExecutedEvent) Kind() EventKind { return EventExecuted }

// FailedEvent is a push notification that a strategy attempt failed.
type FailedEvent struct {
	StrategyID string `json:"strategyId"`
	Reason     string `json:"reason"`
}

func (FailedEvent) Kind() EventKind { return EventFailed }

// PairRemovedEvent is a push notification that a monitored pair was deleted.
type PairRemovedEvent struct {
	PairID string `json:"id"`
}

func (PairRemovedEvent) Kind() EventKind { return EventPairRemoved }

// OpportunityChangedEvent notifies consumers that the live state for one
// pair was replaced.
type OpportunityChangedEvent struct {
	PairID      string      `json:"pairId"`
	Opportunity Opportunity `json:"opportunity"`
}

func (OpportunityChangedEvent) Kind() EventKind { return EventOpportunityChanged }

// SummariesChangedEvent notifies consumers that the strategy summary set was
// recomputed with a different result.
type SummariesChangedEvent struct {
	Summaries []StrategySummary `json:"summaries"`
}

func (SummariesChangedEvent) Kind() EventKind { return EventSummariesChanged }
