// Package pagination implements the bounded cursor walk over the Codacy
// issue search endpoint.
//
// The endpoint returns an opaque pagination cursor with each page; the
// walker round-trips it without ever parsing it. The walk is strictly
// sequential because each cursor is only known after the previous page
// arrives.
//
// Example usage:
//
//	walker := pagination.NewWalker(client, pagination.DefaultConfig())
//	issues, err := walker.FetchAll(ctx)
//
// The walker:
//   - Starts at page 1 with no cursor
//   - Appends each page's issues in server order
//   - Stops when the cursor is absent or a page is empty
//   - Aborts with ErrPageLimit past MaxPages, or with a context deadline
//     once the wall-clock budget elapses
package pagination
