package etwtrace

import "sync"

// callbackRegistry stands in for the C pattern of stashing a pinned
// pointer in EVENT_TRACE_LOGFILEW.Context and recovering it in the
// EVENT_RECORD_CALLBACK trampoline. Go has no manual pinning, so instead
// the Context word carries a small integer handle into this map, which
// gives the callback a stable way to recover the owning Follower without
// passing a Go pointer through C.
var (
	callbackRegistry sync.Map // uintptr -> *Follower
	handleMu         sync.Mutex
	nextHandle       uintptr
)

func registerFollower(f *Follower) uintptr {
	handleMu.Lock()
	nextHandle++
	h := nextHandle
	handleMu.Unlock()

	callbackRegistry.Store(h, f)
	return h
}

func unregisterFollower(h uintptr) {
	callbackRegistry.Delete(h)
}

func lookupFollower(h uintptr) (*Follower, bool) {
	v, ok := callbackRegistry.Load(h)
	if !ok {
		return nil, false
	}
	return v.(*Follower), true
}
