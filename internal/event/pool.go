package event

import (
	"sync"
)

// inputPool recycles InputEvents, which arrive once per keystroke.
//
// Usage:
//
//	ev := AcquireInputEvent()
//	ev.Field = FieldAmount
//	ev.Value = "100"
//	// ... post and process ...
//	ReleaseInputEvent(ev)  // Return to pool after processing
var inputPool = sync.Pool{
	New: func() interface{} {
		return &InputEvent{}
	},
}

// AcquireInputEvent gets an InputEvent from the pool.
// The returned event has zero values and must be initialized.
func AcquireInputEvent() *InputEvent {
	return inputPool.Get().(*InputEvent)
}

// ReleaseInputEvent resets ev and returns it to the pool
func ReleaseInputEvent(ev *InputEvent) {
	if ev == nil {
		return
	}
	ev.Field = 0
	ev.Value = ""

	inputPool.Put(ev)
}

// Warmup pre-allocates a batch of input events
func Warmup() {
	const batchSize = 64

	evs := make([]*InputEvent, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireInputEvent())
	}
	for _, ev := range evs {
		ReleaseInputEvent(ev)
	}
}
