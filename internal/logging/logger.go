package logging

import (
	"log/slog"
	"os"

	"gorm.io/gorm"
)

var stdout slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
	Level: slog.LevelInfo,
})

// Setup initializes the global slog logger with JSON output to stdout.
func Setup() {
	slog.SetDefault(slog.New(stdout))
}

// AttachDB keeps stdout logging and adds the database sink for ERROR+
// records. Call Stop on the returned handler at shutdown to flush it.
func AttachDB(db *gorm.DB) *DBHandler {
	sink := NewDBHandler(db)
	slog.SetDefault(slog.New(NewMultiHandler(stdout, sink)))
	return sink
}
