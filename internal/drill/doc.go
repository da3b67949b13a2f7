// Package drill is the local stand-in for the exercise content: one scripted
// mission, its scoring and clock, and the cooperative loop that drives a
// session around it.
//
// Ownership boundary:
// - mission steps, score, time limit and detector label (Game)
// - poll/tick scheduling and the optional status endpoint (Service)
//
// Session framing and role logic live in package session; relay decides
// which commands run locally.
package drill
