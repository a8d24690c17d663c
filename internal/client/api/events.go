package api

import (
	"bufio"
	"io"
	"strings"
)

const maxEventBytes = 8 << 20

type event struct {
	name string
	data string
}

// readEvents parses a text/event-stream body and hands every dispatched event
// to fn until fn returns false or the body ends.
func readEvents(r io.Reader, fn func(event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxEventBytes)

	var (
		name string
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				ev := event{name: name, data: strings.Join(data, "\n")}
				if ev.name == "" {
					ev.name = "message"
				}
				if !fn(ev) {
					return nil
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}
