// Package watch provides live re-evaluation for descvis. It monitors catalog
// and rules files for changes, debounces rapid events, re-runs the
// evaluation and reports how the visible set changed.
package watch
