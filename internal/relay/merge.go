package relay

import "github.com/danmuck/cyberdrill/internal/protocol"

// Merge applies a host snapshot to local state. The host is authoritative for
// everything except the step index, which never advances past either side.
func Merge(local, remote protocol.Snapshot) protocol.Snapshot {
	out := remote
	out.Step = min(local.Step, remote.Step)
	return out
}
