// Package tui provides a Bubble Tea posts browser backed by the query cache.
//
// The list view attaches to the "posts" query and the detail view to
// ["post", id]. Observer notifications are forwarded into the program as
// messages, so a background refetch shows up as "Updating in background..."
// without blocking the UI.
package tui
