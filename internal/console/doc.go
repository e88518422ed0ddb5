// Package console is the refresh-and-synchronization engine behind both
// front ends (the bubbletea dashboard and the plain watch loop).
//
// The engine holds explicit state for the two pollers: the latest applied
// system stats and the latest applied account list. Front ends reserve a
// sequence number before each fetch (BeginMetrics, BeginAccounts) and hand
// the result back with it (ApplyMetrics, ApplyAccounts). A response older
// than the last applied one is dropped, so a slow timer fetch can never
// overwrite the result of a newer forced refresh.
//
// Rendering is a pure projection: RenderGauges and RenderTable turn a
// snapshot into view structs that the front ends draw however they like.
//
// Operator actions go through the Dispatcher, which never touches the
// engine. A successful mutation reports Refresh in its Outcome and the
// front end issues exactly one forced account fetch.
//
// Nothing in this package is safe for concurrent use. Each front end owns
// its Engine from a single goroutine.
package console
