// Package protocol owns the session wire contract.
//
// Ownership boundary:
// - message kinds and their payload shapes
// - frame encode/decode (one JSON object per newline-terminated frame)
//
// Delimiter splitting of a byte stream lives in protocol/frame.
package protocol
