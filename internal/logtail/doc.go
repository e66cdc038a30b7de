// Package logtail reads the tail of the client's JSON log for the activity
// view.
//
// Read returns the last N lines of a file using a ring buffer, so memory is
// bounded by N regardless of file size. Parse turns a log/slog JSON line
// into an Entry with its attributes in file order; lines that are not JSON
// (a panic trace, for example) are kept as raw entries. Format renders an
// entry as one plain-text line for display:
//
//	lines, err := logtail.Read(cfg.LogPath(), 400)
//	for _, e := range logtail.Filter(logtail.ParseAll(lines), slog.LevelWarn) {
//		fmt.Println(logtail.Format(e))
//	}
package logtail
