package valbind

import (
	"fmt"
)

// Most conversions need only a few temporaries; the inline array avoids a
// heap allocation for them.
const cleanupInline = 6

// CleanupList collects the temporary handles allocated during one boundary
// crossing and releases them all when the crossing completes. Slot 0 holds
// the receiver of the call as a borrowed reference; it is never released by
// the list.
type CleanupList struct {
	host Host

	inline   [cleanupInline]Handle
	n        int
	overflow []Handle

	released bool
}

// NewCleanupList returns a cleanup list for one call with the given
// receiver. Pass the undefined handle for free functions.
func NewCleanupList(host Host, self Handle) *CleanupList {
	cl := &CleanupList{host: host}
	cl.inline[0] = self
	cl.n = 1
	return cl
}

// Self returns the borrowed receiver handle of the call.
func (cl *CleanupList) Self() Handle {
	return cl.inline[0]
}

// Append takes over the caller's reference to h; the list releases it
// exactly once on Release.
func (cl *CleanupList) Append(h Handle) {
	if cl.n < cleanupInline {
		cl.inline[cl.n] = h
		cl.n++
		return
	}
	cl.overflow = append(cl.overflow, h)
}

// Size returns the number of handles the list will release.
func (cl *CleanupList) Size() int {
	return cl.n - 1 + len(cl.overflow)
}

// Release releases every appended handle. Calling it twice would release
// the same references twice, so a second call panics.
func (cl *CleanupList) Release() {
	if cl.released {
		panic(fmt.Errorf("cleanup list released twice"))
	}
	cl.released = true

	for i := 1; i < cl.n; i++ {
		if err := cl.host.DecRef(cl.inline[i]); err != nil {
			panic(fmt.Errorf("could not release handle %d: %w", cl.inline[i], err))
		}
	}
	for _, h := range cl.overflow {
		if err := cl.host.DecRef(h); err != nil {
			panic(fmt.Errorf("could not release handle %d: %w", h, err))
		}
	}
}
