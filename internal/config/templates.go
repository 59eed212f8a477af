package config

import (
	"fmt"
	"os"
	"strings"
)

const (
	KindBoard   = "board"
	KindService = "service"
)

func Template(kind string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case KindBoard:
		return boardTemplate, nil
	case KindService:
		return serviceTemplate, nil
	default:
		return "", fmt.Errorf("unknown config kind: %s", kind)
	}
}

func WriteTemplate(path, kind string, overwrite bool) error {
	template, err := Template(kind)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}

const boardTemplate = `# "gpio" drives real pins, "sim" runs without hardware.
driver = "gpio"

# segments a..g
segments = ["GPIO18", "GPIO19", "GPIO23", "GPIO5", "GPIO13", "GPIO12", "GPIO14"]
decimal_point = "GPIO27"

# left tens, left ones, right tens, right ones
digits = ["GPIO17", "GPIO16", "GPIO26", "GPIO25"]

button_a = "GPIO2"
button_b = "GPIO4"

segment_active_low = false
digit_active_low = false
button_active_high = false

[display]
period_ms = 15
on_time_us = 2300

[input]
debounce_ms = 50
queue_capacity = 10
`

const serviceTemplate = `device_id = "SB-001"
backend_url = "http://192.168.50.1:5000"
publish_timeout = "5s"

stream_address = "192.168.50.1:5000"
stream_secure = false
stream_namespace = "/"

status_addr = ":9200"
# bearer token for /score and /metrics, empty leaves them open
status_token = ""
cors_origins = ["http://localhost:3000"]
heartbeat_interval = "30s"

board_file = "board.toml"

# optional score relay
redis_addr = ""
redis_channel = "scoreboard_updates"

log_file = ""
`
