package thumbwriter

import "sync/atomic"

// Ref increments the Writer's reference count and returns it. This is a
// compatibility convenience for foreign-language callers using shared
// ownership; idiomatic Go callers normally don't need it.
func (w *Writer) Ref() *Writer {
	atomic.AddInt32(&w.refCount, 1)
	return w
}

// Unref decrements the Writer's reference count, clearing its pending
// tables once it reaches zero. Reports the Clear error, if any, from the
// final release.
func (w *Writer) Unref() error {
	if atomic.AddInt32(&w.refCount, -1) == 0 {
		return w.Clear()
	}
	return nil
}
