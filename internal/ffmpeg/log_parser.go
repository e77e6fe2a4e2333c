package ffmpeg

import (
	"log/slog"
	"strings"
)

// levelTags maps the tags printed with "-loglevel level+..." to slog levels.
var levelTags = map[string]slog.Level{
	"quiet":   slog.LevelInfo,
	"panic":   slog.LevelError,
	"fatal":   slog.LevelError,
	"error":   slog.LevelError,
	"warning": slog.LevelWarn,
	"info":    slog.LevelInfo,
	"verbose": slog.LevelDebug,
	"debug":   slog.LevelDebug,
	"trace":   slog.LevelDebug,
}

// ParseLogLevel splits the level tag off an ffmpeg output line, as in
// "[warning] message" or "[mp3 @ 0x5581] [error] message". A component
// context in front of the tag stays in the message. Lines without a known
// tag are info and returned unchanged.
func ParseLogLevel(line string) (slog.Level, string) {
	tag, rest, ok := cutTag(line)
	if !ok {
		return slog.LevelInfo, line
	}
	if level, known := levelTags[tag]; known {
		return level, rest
	}

	context := line[:len(line)-len(rest)]
	if tag, msg, ok := cutTag(rest); ok {
		if level, known := levelTags[tag]; known {
			return level, context + msg
		}
	}
	return slog.LevelInfo, line
}

// cutTag cuts a leading "[tag] " off s.
func cutTag(s string) (tag, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", s, false
	}
	return strings.Cut(s[1:], "] ")
}
