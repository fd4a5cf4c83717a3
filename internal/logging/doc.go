// Package logging configures log/slog for audiotopo with one logger per module.
//
// Every logger returned by GetLogger carries a "module" attribute and its own
// slog.LevelVar, so the walker can run at debug while the API stays at warn:
//
//	logging.Initialize(logging.Config{
//		Level:   "info",
//		Format:  "text",
//		Modules: map[string]string{"topology": "debug", "http": "warn"},
//	})
//	logger := logging.GetLogger("topology").With("device_id", id)
//	logger.Debug("Visiting node", "location", loc)
//
// Loggers may be taken before Initialize (package-level vars do this); Initialize
// rebuilds their handlers in place.
//
// Records fan out to up to three destinations:
//
//   - Config.Output (stdout by default) as text or JSON, when it is a terminal, pipe
//     or file. Subcommands point it at stderr.
//   - The systemd journal when journald is listening, with attributes as upper-case
//     fields: journalctl -t audiotopo MODULE=topology DEVICE_ID=hda:card0:pcm0p
//   - A ring buffer of recent entries, served by /api/logs and streamed to SSE clients
//     through SetLogCallback.
//
// Module levels can be changed while running with SetModuleLevel, which backs
// PUT /api/logs/level/{module}.
package logging
