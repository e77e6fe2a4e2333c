package ffmpeg

import (
	"strconv"
	"strings"
	"time"
)

// Progress is one parsed ffmpeg statistics line, e.g.
// "size=     512kB time=00:00:32.70 bitrate= 128.3kbits/s speed=1.01x".
type Progress struct {
	Size        string
	OutTime     time.Duration
	BitrateKbps float64
	Speed       float64
}

// ParseProgress parses a statistics line, with or without a log level prefix.
// Fields reported as N/A are left zero. Returns false for any other line.
func ParseProgress(line string) (Progress, bool) {
	_, msg := ParseLogLevel(line)

	values := make(map[string]string)
	fields := strings.Fields(msg)
	for i := 0; i < len(fields); i++ {
		key, value, ok := strings.Cut(fields[i], "=")
		if !ok || key == "" {
			continue
		}
		// ffmpeg pads values, so "bitrate= 128.3kbits/s" spans two fields
		if value == "" && i+1 < len(fields) && !strings.Contains(fields[i+1], "=") {
			i++
			value = fields[i]
		}
		values[key] = value
	}

	timeValue, hasTime := values["time"]
	_, hasSize := values["size"]
	if !hasTime || !hasSize {
		return Progress{}, false
	}

	p := Progress{Size: values["size"]}
	if d, ok := parseClock(timeValue); ok {
		p.OutTime = d
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(values["bitrate"], "kbits/s"), 64); err == nil {
		p.BitrateKbps = v
	}
	if v, err := strconv.ParseFloat(strings.TrimSuffix(values["speed"], "x"), 64); err == nil {
		p.Speed = v
	}
	return p, true
}

// parseClock parses HH:MM:SS.ss.
func parseClock(s string) (time.Duration, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, false
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, false
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, false
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, false
	}
	total := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute + time.Duration(seconds*float64(time.Second))
	return total, true
}
