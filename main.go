package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/smazurov/qaspar/cmd"
	"github.com/smazurov/qaspar/internal/config"
	"github.com/smazurov/qaspar/internal/logging"
	"github.com/smazurov/qaspar/internal/pipeline"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `doc:"Path to configuration file" short:"c" default:"qaspar.toml"`

	// Stream settings
	URL          string `doc:"Stream URL" short:"u" toml:"stream.url" env:"STREAM_URL"`
	Executable   string `doc:"ffmpeg executable" default:"ffmpeg" toml:"stream.executable" env:"STREAM_EXECUTABLE"`
	InputOptions string `doc:"Comma separated ffmpeg input options (reconnect, rw_timeout, genpts, ignore_err, low_latency)" toml:"stream.input_options" env:"STREAM_INPUT_OPTIONS"`
	FFmpegLog    string `name:"ffmpeg-loglevel" doc:"ffmpeg -loglevel value" default:"level+info" toml:"stream.loglevel" env:"STREAM_LOGLEVEL"`

	// Player settings
	NoPlay   bool   `doc:"Do not play the stream" toml:"play.disabled" env:"PLAY_DISABLED"`
	PlaySink string `doc:"ffmpeg output format used for playback" default:"pulse" toml:"play.sink" env:"PLAY_SINK"`

	// Store settings
	NoStore        bool   `doc:"Do not store the stream" toml:"store.disabled" env:"STORE_DISABLED"`
	StoreSplitTime int    `doc:"Seconds per archive file" default:"3600" toml:"store.split_time" env:"STORE_SPLIT_TIME"`
	StorePath      string `doc:"Archive directory" default:"./archived_files" toml:"store.path" env:"STORE_PATH"`
	StoreFilename  string `doc:"Archive file name, strftime template" default:"archive-%Y_%m_%d-%H_%M_%S.mp3" toml:"store.filename" env:"STORE_FILENAME"`
	NoAutoDelete   bool   `doc:"Never delete aged archive files" toml:"store.no_auto_delete" env:"STORE_NO_AUTO_DELETE"`
	StoreKeep      int    `doc:"Days to keep archive files" default:"30" toml:"store.keep_days" env:"STORE_KEEP_DAYS"`

	// Supervisor settings
	Verbose      bool   `doc:"Log every line ffmpeg writes" short:"v" toml:"supervisor.verbose" env:"VERBOSE"`
	PollInterval string `doc:"Time between two polls of the processes" default:"1s" toml:"supervisor.poll_interval" env:"POLL_INTERVAL"`

	// Server settings
	StatusAddr   string `doc:"Address of the status API, disabled when empty" toml:"server.addr" env:"SERVER_ADDR"`
	AuthUsername string `doc:"Basic auth username, auth disabled when empty" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `doc:"Basic auth password" toml:"auth.password" env:"AUTH_PASSWORD"`
	Metrics      bool   `doc:"Serve Prometheus metrics on the status API" default:"true" toml:"server.metrics" env:"SERVER_METRICS"`

	// Update settings
	UpdateRepository string `doc:"GitHub repository checked for updates" default:"smazurov/qaspar" toml:"update.repository" env:"UPDATE_REPOSITORY"`

	// Logging settings
	LoggingLevel      string `doc:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat     string `doc:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingFile       string `doc:"Also write logs to this file, rotated" toml:"logging.file" env:"LOGGING_FILE"`
	LoggingFileSize   int    `doc:"Rotate the log file at this size in megabytes" default:"50" toml:"logging.file_max_size_mb" env:"LOGGING_FILE_MAX_SIZE_MB"`
	LoggingFileKeep   int    `doc:"Rotated log files to keep" default:"5" toml:"logging.file_max_backups" env:"LOGGING_FILE_MAX_BACKUPS"`
	LoggingFileGzip   bool   `doc:"Compress rotated log files" toml:"logging.file_compress" env:"LOGGING_FILE_COMPRESS"`
	LoggingSupervisor string `doc:"Supervisor logging level" default:"info" toml:"logging.supervisor" env:"LOGGING_SUPERVISOR"`
	LoggingArchive    string `doc:"Archive logging level" default:"info" toml:"logging.archive" env:"LOGGING_ARCHIVE"`
	LoggingFFmpeg     string `name:"logging-ffmpeg" doc:"ffmpeg output logging level" default:"info" toml:"logging.ffmpeg" env:"LOGGING_FFMPEG"`
	LoggingAPI        string `doc:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
}

// pipelineConfig maps the options onto the player and recorder settings.
func (o *Options) pipelineConfig() pipeline.Config {
	var inputOptions []string
	for _, name := range strings.Split(o.InputOptions, ",") {
		if name = strings.TrimSpace(name); name != "" {
			inputOptions = append(inputOptions, name)
		}
	}

	return pipeline.Config{
		URL:           o.URL,
		Executable:    o.Executable,
		LogLevel:      o.FFmpegLog,
		InputOptions:  inputOptions,
		Play:          !o.NoPlay,
		PlaySink:      o.PlaySink,
		Store:         !o.NoStore,
		SplitTime:     o.StoreSplitTime,
		StorePath:     o.StorePath,
		StoreFilename: o.StoreFilename,
		Cleanup:       !o.NoAutoDelete,
		KeepDays:      float64(o.StoreKeep),
	}
}

func (o *Options) loggingConfig() logging.Config {
	return logging.Config{
		Level:          o.LoggingLevel,
		Format:         o.LoggingFormat,
		File:           o.LoggingFile,
		FileMaxSizeMB:  o.LoggingFileSize,
		FileMaxBackups: o.LoggingFileKeep,
		FileCompress:   o.LoggingFileGzip,
		Modules: map[string]string{
			"supervisor": o.LoggingSupervisor,
			"archive":    o.LoggingArchive,
			"ffmpeg":     o.LoggingFFmpeg,
			"api":        o.LoggingAPI,
		},
	}
}

func main() {
	var cli humacli.CLI
	var opts *Options

	cli = humacli.New(func(hooks humacli.Hooks, parsed *Options) {
		opts = parsed

		// Load configuration automatically
		if loadErr := config.LoadConfig(opts, cli.Root()); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(opts.loggingConfig())
		logger := logging.GetLogger("main")

		pollInterval, err := time.ParseDuration(opts.PollInterval)
		if err != nil || pollInterval <= 0 {
			logger.Warn("Invalid poll interval, using 1s", "value", opts.PollInterval)
			pollInterval = time.Second
		}

		// The file is re-read on top of the startup options, so flags set on
		// the command line keep their value.
		reload := func(path string) (pipeline.Config, error) {
			fresh := *opts
			fresh.Config = path
			if loadErr := config.LoadConfig(&fresh, cli.Root()); loadErr != nil {
				return pipeline.Config{}, loadErr
			}
			return fresh.pipelineConfig(), nil
		}

		runner := cmd.NewRunner(cmd.RunConfig{
			Pipeline:         opts.pipelineConfig(),
			Verbose:          opts.Verbose,
			PollInterval:     pollInterval,
			StatusAddr:       opts.StatusAddr,
			AuthUsername:     opts.AuthUsername,
			AuthPassword:     opts.AuthPassword,
			Metrics:          opts.Metrics,
			UpdateRepository: opts.UpdateRepository,
			ConfigPath:       opts.Config,
			Reload:           reload,
		})

		hooks.OnStart(func() {
			code := runner.Run(context.Background())
			if closeErr := logging.Close(); closeErr != nil {
				slog.Warn("Failed to close log file", "error", closeErr)
			}
			if code != 0 {
				os.Exit(code)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down")
			runner.Stop()
			<-runner.Done()
		})
	})

	cli.Root().Use = "qaspar"
	cli.Root().Short = "Play and record an internet radio stream with ffmpeg"

	cli.Root().AddCommand(cmd.CreatePruneCmd(func() pipeline.Config {
		return opts.pipelineConfig()
	}))
	cli.Root().AddCommand(cmd.CreateVersionCmd())
	cli.Root().AddCommand(cmd.CreateUpdateCmd(func() string {
		return opts.UpdateRepository
	}))

	// Run the CLI
	cli.Run()
}
