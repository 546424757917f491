package plugin

// Progress is a single progress event emitted by a long-running plugin
// operation. Consumers receive events over a channel supplied in the
// request; producers close the channel when the operation ends.
type Progress struct {
	// Stage names the current phase ("parsing", "moving", ...).
	Stage string

	// Current is the number of items processed so far.
	Current int

	// Total is the total number of items, or 0 when unknown.
	Total int

	// Path is the item being processed, if any.
	Path string

	// Err is set when the item failed; the operation continues.
	Err error
}

// NotifyProgress sends an event without blocking. Events are dropped when
// the channel is nil or full; progress is advisory, never load-bearing.
func NotifyProgress(ch chan<- Progress, ev Progress) {
	if ch == nil {
		return
	}
	select {
	case ch <- ev:
	default:
	}
}
