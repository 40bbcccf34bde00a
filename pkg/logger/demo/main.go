package main

import (
	"log/slog"

	"github.com/oakmoss/graphrag/pkg/logger"
)

func main() {
	log := logger.NewDefaultLogger(slog.LevelDebug)

	log.Info("============================================")
	log.Info("    graphrag colored logger demo")
	log.Info("============================================")
	log.Info("")

	log.Debug("Debug message - cyan!")
	log.Info("Info message - standard color")
	log.Info("Persisting chunk vectors to the working directory - green!")
	log.Info("Vector store persisted successfully - also green!")
	log.Warn("Warning message - yellow!")
	log.Error("Error message - red!")

	log.Info("")
	log.Info("Persistence operations are highlighted in green:")
	log.Info("Persisting deduplicated entities early", "count", 42, "batch_size", 100)
	log.Info("Deduplicated entities persisted", "duration", "2.5s")
	log.Info("Persisting synonymy edges early", "count", 156)
	log.Info("Synonymy edges persisted", "duration", "1.8s")

	log.Info("")
	log.Warn("Warnings appear in yellow for attention")
	log.Error("Errors appear in red for immediate visibility")

	log.Info("")
	log.Info("Demo complete!")
}
