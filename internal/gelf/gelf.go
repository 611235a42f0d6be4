package gelf

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strings"
	"time"
)

// Writer sends GELF messages over UDP and implements io.Writer so it can
// sit behind a slog JSON handler via io.MultiWriter.
type Writer struct {
	conn     net.Conn
	hostname string
	service  string
}

// New creates a GELF UDP writer connected to addr (e.g. "172.17.0.1:12201").
func New(addr, service string) (*Writer, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, err
	}

	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = service
	}

	return &Writer{conn: conn, hostname: hostname, service: service}, nil
}

func (w *Writer) Close() error {
	return w.conn.Close()
}

// syslog severities
func level(l string) int {
	switch strings.ToUpper(l) {
	case "DEBUG":
		return 7
	case "WARN":
		return 4
	case "ERROR":
		return 3
	}
	return 6
}

// Write implements io.Writer. Each call carries one slog JSON record and is
// sent as one GELF message. Record attributes become additional fields.
// Lines that are not JSON are sent verbatim at informational level.
func (w *Writer) Write(p []byte) (int, error) {
	line := strings.TrimRight(string(p), "\n")

	msg := map[string]any{
		"version":       "1.1",
		"host":          w.hostname,
		"short_message": line,
		"timestamp":     float64(time.Now().UnixNano()) / 1e9,
		"level":         6,
		"_service":      w.service,
	}

	var record map[string]any
	if err := json.Unmarshal([]byte(line), &record); err == nil {
		for k, v := range record {
			switch k {
			case "msg":
				msg["short_message"] = fmt.Sprint(v)
			case "level":
				msg["level"] = level(fmt.Sprint(v))
			case "time":
				if t, err := time.Parse(time.RFC3339Nano, fmt.Sprint(v)); err == nil {
					msg["timestamp"] = float64(t.UnixNano()) / 1e9
				}
			case "id":
				// "_id" is reserved by GELF
				msg["_record_id"] = v
			default:
				msg["_"+k] = v
			}
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return len(p), nil
	}

	// fire-and-forget
	w.conn.Write(payload)
	return len(p), nil
}
