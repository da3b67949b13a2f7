package config

import (
	"fmt"
	"os"
)

// Template returns a commented example config with every supported key.
func Template() string {
	return exampleTemplate
}

// WriteTemplate writes the example config to path. An existing file is kept
// unless overwrite is set.
func WriteTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(exampleTemplate), 0o600)
}

const exampleTemplate = `# solo | host | join
mode = "host"
port = 50555
code = "42"
host_addr = "192.168.0.10"
listen_host = ""
# keep the host code as started; an empty code then admits every peer
fixed_code = false

connect_timeout = "3s"
write_timeout = "2s"
poll_interval = "100ms"
tick_interval = "1s"
max_frame_bytes = 1048576
outbox_depth = 64

metrics_addr = "127.0.0.1:9105"
log_level = "info"

time_limit = 200
difficulty = "normal"
`
