package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"airbnb-cleaner/config"
	"airbnb-cleaner/models"
	"airbnb-cleaner/services"
	"airbnb-cleaner/storage"
	"airbnb-cleaner/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration: %v", err)
		os.Exit(1)
	}
	logger.SetLevel(utils.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Pipeline failed: %v", err)
		stop()
		os.Exit(1)
	}
	logger.Info("Pipeline completed successfully.")
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	logger.Info("=== Airbnb listings cleaning pipeline starting ===")
	logger.Info("Config: driver %s | output table %s | batch %d", cfg.DBDriver, cfg.OutputTable, cfg.InsertBatchSize)

	dialect, err := storage.DialectFor(cfg.DBDriver)
	if err != nil {
		return err
	}

	store, err := storage.OpenSQLStore(ctx, dialect, cfg.DSN(), storage.StoreOptions{
		BatchSize: cfg.InsertBatchSize,
		Retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay,
			Logger:      logger,
		},
	}, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	var source storage.TableSource = storage.QuerySource{Store: store, Query: cfg.SourceQuery}
	if cfg.SourceCSVPath != "" {
		source = storage.NewCSVReader(cfg.SourceCSVPath, logger)
	}

	raw, err := source.Load(ctx)
	if err != nil {
		return err
	}
	logger.Info("Loaded %d raw rows", raw.Len())

	cleaner := services.NewCleaner(logger, cleanerOptions(cfg))
	cleaner.Clean(raw)

	var sink storage.TableSink = store
	if err := sink.Replace(ctx, cfg.OutputTable, raw); err != nil {
		return err
	}
	logger.Info("Cleaned listings stored (table: %s)", cfg.OutputTable)

	export(cfg, raw, logger)

	summary := services.NewSummaryService(logger)
	summary.Print(os.Stdout, summary.Generate(raw))
	return nil
}

func cleanerOptions(cfg *config.Config) services.CleanerOptions {
	opts := services.DefaultCleanerOptions()
	if len(cfg.HostInfoColumns) > 0 {
		opts.HostInfoColumns = cfg.HostInfoColumns
	}
	if len(cfg.ReviewColumns) > 0 {
		opts.ReviewColumns = cfg.ReviewColumns
	}
	return opts
}

// export writes the optional file copies. Failures are logged; the database
// copy is already persisted at this point.
func export(cfg *config.Config, t *models.Table, logger *utils.Logger) {
	if cfg.CSVOutputPath != "" {
		w, err := storage.NewCSVWriter(cfg.CSVOutputPath)
		if err != nil {
			logger.Error("Failed to create CSV writer: %v", err)
		} else {
			writeExport(w, t, "[csv]", cfg.CSVOutputPath, logger)
		}
	}

	if cfg.XLSXOutputPath != "" {
		w, err := storage.NewXLSXWriter(cfg.XLSXOutputPath, "listings")
		if err != nil {
			logger.Error("Failed to create XLSX writer: %v", err)
		} else {
			writeExport(w, t, "[xlsx]", cfg.XLSXOutputPath, logger)
		}
	}
}

func writeExport(w storage.TableExporter, t *models.Table, tag, path string, logger *utils.Logger) {
	defer w.Close()
	if err := w.Export(t); err != nil {
		logger.Error("%s export failed: %v", tag, err)
		return
	}
	logger.Info("%s Cleaned listings saved to %s", tag, path)
}
