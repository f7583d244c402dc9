package output

import (
	"github.com/hupe1980/descvis/internal/descriptor"
)

// Entry is one visible descriptor in a Report.
type Entry struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Category    string `json:"category,omitempty"`
	Since       string `json:"since,omitempty"`
	Source      string `json:"source,omitempty"`
}

// Report is the result of one evaluation.
type Report struct {
	// Scope is the evaluated scope ("project:web"), or empty for a
	// type-only evaluation.
	Scope string `json:"scope,omitempty"`
	// ScopeType names the scope type, or "<nil>".
	ScopeType string `json:"scopeType"`
	// Profile is the applied filter profile.
	Profile string `json:"profile,omitempty"`
	// Filters are the names of the consulted filters, in order.
	Filters []string `json:"filters"`
	// Total is the number of candidate descriptors.
	Total int `json:"total"`
	// Visible are the descriptors that passed every filter, in catalog order.
	Visible []Entry `json:"visible"`
}

// Hidden returns the number of candidates that are not visible.
func (r *Report) Hidden() int {
	return r.Total - len(r.Visible)
}

// IDs returns the ids of the visible descriptors.
func (r *Report) IDs() []string {
	ids := make([]string, len(r.Visible))
	for i, e := range r.Visible {
		ids[i] = e.ID
	}

	return ids
}

// Entries converts descriptors into report entries.
func Entries(ds []*descriptor.Descriptor) []Entry {
	out := make([]Entry, len(ds))

	for i, d := range ds {
		out[i] = Entry{
			ID:          d.ID(),
			DisplayName: d.DisplayName(),
			Category:    d.Category,
			Since:       d.Since,
			Source:      d.Source,
		}
	}

	return out
}
