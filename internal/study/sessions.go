// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package study

// defaultRefreshEvery bounds how many samples one inference session serves
// within a single large study before it is recycled.
const defaultRefreshEvery = 30

// Sessions decides when the inference backend's session should be recycled:
// always on a study-group change (dropping the old context), and periodically
// within one large group (keeping the context, so consistency guidance
// survives the rotation).
type Sessions struct {
	refreshEvery int
	current      *Context
	sinceRefresh int
}

// NewSessions returns a tracker that rotates sessions every refreshEvery
// samples within a group. Non-positive means the default.
func NewSessions(refreshEvery int) *Sessions {
	if refreshEvery <= 0 {
		refreshEvery = defaultRefreshEvery
	}
	return &Sessions{refreshEvery: refreshEvery}
}

// ContextFor returns the study context to use for one sample and whether the
// backend session should be refreshed before processing it.
func (s *Sessions) ContextFor(accession, gse string) (ctx *Context, refresh bool) {
	key := Key(accession, gse)

	switch {
	case s.current == nil || s.current.Key() != key:
		s.current = NewContext(key)
		s.sinceRefresh = 0
		refresh = true
	case s.sinceRefresh >= s.refreshEvery:
		// Large study: recycle the session but keep the accumulated context.
		s.sinceRefresh = 0
		refresh = true
	}

	s.sinceRefresh++
	return s.current, refresh
}
