// Package session owns the LAN session layer: role negotiation, peer
// connections, and routing of decoded frames.
//
// Ownership boundary:
// - listener and upstream socket lifecycle (Manager)
// - per-connection byte movement and frame buffering (PeerConnection)
// - access-code enforcement and callback dispatch (Router)
//
// A Manager is driven from one goroutine. Background goroutines started by
// this package only move bytes between sockets and channels.
package session
