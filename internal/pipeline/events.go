package pipeline

import "github.com/citegap/citegap/internal/generator"

// EventType names a pipeline stage trigger.
type EventType string

const (
	// EventScanWindowReady fires when a brand's scan window should be
	// analyzed: gap analysis, discovery, then generation fan-out.
	EventScanWindowReady EventType = "scan_window_ready"
	// EventMemoRequested asks the generator for one memo.
	EventMemoRequested EventType = "memo_requested"
	// EventMemoGenerated fires after a memo is persisted.
	EventMemoGenerated EventType = "memo_generated"
	// EventBacklinkMemo runs the single-memo backlink pass.
	EventBacklinkMemo EventType = "backlink_memo"
	// EventBacklinkBatch re-links every published memo of a brand.
	EventBacklinkBatch EventType = "backlink_batch"
	// EventDigestDue computes and delivers the daily digest.
	EventDigestDue EventType = "digest_due"
)

// Event is the unit of work on the bus.
type Event struct {
	Type       EventType
	BrandID    string
	MemoID     string
	GenRequest *generator.Request // set for EventMemoRequested
}

// eventGraph enumerates the only follow-up events each handler may emit.
// Keeping the graph finite and self-edge-free is what rules out unbounded
// event recursion; the invariant is enforced at dispatch and pinned by tests.
var eventGraph = map[EventType][]EventType{
	EventScanWindowReady: {EventMemoRequested},
	EventMemoRequested:   {EventMemoGenerated},
	EventMemoGenerated:   {EventBacklinkMemo, EventBacklinkBatch},
	EventBacklinkMemo:    {},
	EventBacklinkBatch:   {},
	EventDigestDue:       {},
}

func allowedFollowUp(parent, child EventType) bool {
	for _, t := range eventGraph[parent] {
		if t == child {
			return true
		}
	}
	return false
}
