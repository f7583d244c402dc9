// Package filter implements the built-in descriptor visibility filters and
// the rules file that assembles them into profiles.
//
// Type-level filters ([ApplicabilityFilter], [CategoryFilter]) decide from
// the scope type alone. Instance-level filters ([IDFilter], [LabelFilter],
// [VersionFilter]) inspect the concrete scope. All of them implement
// visibility.Filter and approve items that are not descriptors.
package filter
