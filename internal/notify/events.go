package notify

// Event types emitted by the revenue pipeline. Operators subscribe to the
// subset they care about via the notify config.
const (
	EventPayoutFailed   = "payout_failed"
	EventSplitViolation = "invariant_violation"
	EventIngestError    = "ingest_error"
)

// AllEvents lists every event type the pipeline can emit.
var AllEvents = []string{
	EventPayoutFailed,
	EventSplitViolation,
	EventIngestError,
}
