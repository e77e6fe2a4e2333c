// Package logging sets up the slog loggers of qaspar.
//
// Each module gets its own logger and level:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{"ffmpeg": "debug"},
//	})
//	logger := logging.GetLogger("supervisor").With("process", "Store")
//
// The modules in use are main, supervisor, ffmpeg (output of the supervised
// processes), archive, config, api, systemd and updater. Levels are held in
// slog.LevelVar values, so a logger fetched before Initialize follows the
// configured level afterwards.
//
// Every record goes to stdout (unless it is closed), to the systemd journal
// when journald is reachable, to the in-memory ring buffer read by the status
// API, and to a size-rotated file when Config.File is set:
//
//	[logging]
//	level = "info"
//	file = "/var/log/qaspar/qaspar.log"
//	file_max_size_mb = 50
//	file_max_backups = 5
//
// Journal entries carry SYSLOG_IDENTIFIER=qaspar and one field per
// attribute:
//
//	journalctl -t qaspar -f
//	journalctl -t qaspar MODULE=ffmpeg PROCESS=Player
package logging
