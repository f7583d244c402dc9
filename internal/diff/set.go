package diff

import "fmt"

// SetChange describes how a visible set changed.
type SetChange struct {
	// Added are the ids only in the new set, in its order.
	Added []string `json:"added,omitempty"`
	// Removed are the ids only in the old set, in its order.
	Removed []string `json:"removed,omitempty"`
	// Unchanged counts the ids present in both sets.
	Unchanged int `json:"unchanged"`
}

// Compare computes the change from the old to the new id list.
func Compare(oldIDs, newIDs []string) *SetChange {
	oldSet := toSet(oldIDs)
	newSet := toSet(newIDs)

	c := &SetChange{}

	for _, id := range newIDs {
		if oldSet[id] {
			c.Unchanged++
		} else {
			c.Added = append(c.Added, id)
		}
	}

	for _, id := range oldIDs {
		if !newSet[id] {
			c.Removed = append(c.Removed, id)
		}
	}

	return c
}

// Empty reports whether nothing was added or removed.
func (c *SetChange) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0
}

// String summarises the change, e.g. "+2 -1 (5 unchanged)".
func (c *SetChange) String() string {
	return fmt.Sprintf("+%d -%d (%d unchanged)", len(c.Added), len(c.Removed), c.Unchanged)
}

func toSet(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}

	return m
}
