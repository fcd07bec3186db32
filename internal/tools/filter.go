package tools

import "path"

// Filter decides which tools are exposed, using allow and deny lists of glob
// patterns (path.Match syntax) over tool names.
//
// Rules:
//   - If both lists are empty, every tool is allowed.
//   - The deny list is checked first and always wins.
//   - A non-empty allow list must match the name for it to be allowed.
type Filter struct {
	allow []string
	deny  []string
}

// NewFilter returns a Filter over the given pattern lists. Either may be nil.
func NewFilter(allow, deny []string) *Filter {
	return &Filter{allow: allow, deny: deny}
}

// IsAllowed reports whether the tool called name may be registered. A nil
// Filter allows everything.
func (f *Filter) IsAllowed(name string) bool {
	if f == nil {
		return true
	}
	for _, pattern := range f.deny {
		if matchGlob(pattern, name) {
			return false
		}
	}
	if len(f.allow) == 0 {
		return true
	}
	for _, pattern := range f.allow {
		if matchGlob(pattern, name) {
			return true
		}
	}
	return false
}

// Select returns the registrations whose tool names are allowed, keeping
// their order.
func (f *Filter) Select(registrations []Registration) []Registration {
	kept := make([]Registration, 0, len(registrations))
	for _, r := range registrations {
		if f.IsAllowed(r.Tool.Name) {
			kept = append(kept, r)
		}
	}
	return kept
}

// matchGlob treats malformed patterns as non-matching.
func matchGlob(pattern, name string) bool {
	matched, err := path.Match(pattern, name)
	return err == nil && matched
}
