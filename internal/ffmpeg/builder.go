package ffmpeg

import "strconv"

const (
	defaultExecutable = "ffmpeg"
	defaultLogLevel   = "level+info"

	// PlayerDeviceName is the stream name shown by the audio server.
	PlayerDeviceName = "qaspar_ffmpeg_player"
)

// baseArgs returns the executable, global flags and the input.
// -nostdin keeps ffmpeg from reading the terminal of the supervisor.
func baseArgs(p *Params) []string {
	exe := p.Executable
	if exe == "" {
		exe = defaultExecutable
	}
	level := p.LogLevel
	if level == "" {
		level = defaultLogLevel
	}

	args := []string{exe, "-hide_banner", "-nostdin", "-loglevel", level}
	args = append(args, ApplyOptions(p.Options)...)
	return append(args, "-i", p.InputURL)
}

// PlayerArgs builds the command that plays the stream on an audio sink.
func PlayerArgs(p *Params) []string {
	return append(baseArgs(p), "-f", p.Sink, PlayerDeviceName)
}

// RecorderArgs builds the command that copies the stream into wall-clock
// aligned segment files named by a strftime template.
func RecorderArgs(p *Params) []string {
	args := append(baseArgs(p),
		"-c:a", "copy",
		"-f", "segment",
		"-segment_time", strconv.Itoa(p.SegmentTime),
		"-segment_atclocktime", "1",
		"-strftime", "1",
	)
	return append(args, p.OutputPattern)
}
