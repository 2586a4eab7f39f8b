// Package lifecycle implements the batch state machine, the claim arbiter,
// and the transition notification feed.
//
// The Machine is the sole writer of batch status. Every transition is a
// single conditional write keyed on the expected prior status, so the
// defining hazard - concurrent requests for the same batch - resolves at the
// store: whichever conditional update is accepted first wins, and losers
// observe the post-state and fail cleanly. No global lock exists; contention
// is scoped to a single row.
package lifecycle
