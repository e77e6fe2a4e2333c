package ffmpeg

// Params represents all parameters needed to generate an FFmpeg command.
type Params struct {
	// Input Configuration
	Executable string       // ffmpeg binary, "ffmpeg" when empty
	InputURL   string       // http://radio.example.com:8000/stream
	Options    []OptionType // input flags, applied before -i
	LogLevel   string       // "level+info" when empty

	// Player
	Sink string // pulse, alsa, etc.

	// Recorder
	SegmentTime   int    // seconds per archive file
	OutputPattern string // ./archived_files/archive-%Y_%m_%d-%H_%M_%S.mp3
}
