package agenda

import "sync"

// DaysCountForWidth maps a viewport width to the number of rendered days.
// Breakpoints: below 640 one day, below 1024 three, otherwise five.
func DaysCountForWidth(width int) int {
	switch {
	case width < 640:
		return 1
	case width < 1024:
		return 3
	default:
		return 5
	}
}

// WidthWatcher tracks a viewport width and notifies subscribers when the
// derived day count changes bucket. Subscribe returns a disposer; releasing
// it removes exactly that subscriber and is safe to call more than once.
type WidthWatcher struct {
	mu      sync.Mutex
	count   int
	subs    map[int]func(daysCount int)
	nextSub int
}

func NewWidthWatcher(width int) *WidthWatcher {
	return &WidthWatcher{
		count: DaysCountForWidth(width),
		subs:  make(map[int]func(int)),
	}
}

func (w *WidthWatcher) DaysCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.count
}

// Set records a new width. Subscribers only fire when the day count actually
// changes, not on every resize.
func (w *WidthWatcher) Set(width int) {
	w.mu.Lock()
	count := DaysCountForWidth(width)
	if count == w.count {
		w.mu.Unlock()
		return
	}
	w.count = count
	fns := make([]func(int), 0, len(w.subs))
	for _, fn := range w.subs {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(count)
	}
}

func (w *WidthWatcher) Subscribe(fn func(daysCount int)) func() {
	w.mu.Lock()
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	w.mu.Unlock()

	return func() {
		w.mu.Lock()
		delete(w.subs, id)
		w.mu.Unlock()
	}
}
