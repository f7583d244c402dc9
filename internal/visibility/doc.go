// Package visibility decides which descriptors are visible in a scope.
//
// A [Chain] evaluates an ordered snapshot of [Filter] values against every
// candidate item. A filter can veto an item at the type level
// ([Filter.FilterType], consulted only when the scope type is known) or at
// the instance level ([Filter.Filter]). The first veto removes the item and
// the remaining filters are not consulted for it.
//
// # Failures
//
// A filter that returns an error or panics is treated as a veto for the item
// being evaluated. Such failures are logged at a severity chosen by a
// [Ledger]: the first failure of a filter, and the first failure after the
// suppression interval has elapsed, are logged at [LevelHigh]; repeats are
// logged at [LevelLow].
//
// Errors matching [ErrUnrecoverable] are different. They are logged at
// [LevelHigh] and abort the evaluation; [Apply] returns them wrapped in a
// [*FilterError] and no result.
//
// # Concurrency
//
// [Apply] and [ApplyType] are safe for concurrent use. The only state shared
// between calls is the [Ledger], which serializes its lookup-and-update.
package visibility
