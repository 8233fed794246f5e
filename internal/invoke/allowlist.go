package invoke

import "sync"

// AllowList maps target actor ids to the set of callers permitted to invoke
// them. The check is purely local: it never consults a collaborator and
// therefore never fails open. Default is deny — absence means denied.
type AllowList struct {
	mu    sync.RWMutex
	edges map[string]map[string]struct{} // target -> callers
}

// NewAllowList creates an allow-list from target -> callers edges.
func NewAllowList(edges map[string][]string) *AllowList {
	al := &AllowList{edges: make(map[string]map[string]struct{}, len(edges))}
	for target, callers := range edges {
		set := make(map[string]struct{}, len(callers))
		for _, c := range callers {
			set[c] = struct{}{}
		}
		al.edges[target] = set
	}
	return al
}

// IsAllowed reports whether callerID may invoke targetID.
func (al *AllowList) IsAllowed(callerID, targetID string) bool {
	al.mu.RLock()
	defer al.mu.RUnlock()
	callers, ok := al.edges[targetID]
	if !ok {
		return false
	}
	_, ok = callers[callerID]
	return ok
}

// Allow adds an edge permitting callerID to invoke targetID.
func (al *AllowList) Allow(targetID, callerID string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	callers, ok := al.edges[targetID]
	if !ok {
		callers = make(map[string]struct{})
		al.edges[targetID] = callers
	}
	callers[callerID] = struct{}{}
}

// Revoke removes an edge.
func (al *AllowList) Revoke(targetID, callerID string) {
	al.mu.Lock()
	defer al.mu.Unlock()
	if callers, ok := al.edges[targetID]; ok {
		delete(callers, callerID)
	}
}

// Callers returns the callers permitted to invoke targetID.
func (al *AllowList) Callers(targetID string) []string {
	al.mu.RLock()
	defer al.mu.RUnlock()
	callers := make([]string, 0, len(al.edges[targetID]))
	for c := range al.edges[targetID] {
		callers = append(callers, c)
	}
	return callers
}
