package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"classplanner/internal/config"
	"classplanner/internal/database"
	"classplanner/internal/logger"
	"classplanner/internal/service"
)

func main() {
	exportCmd := flag.NewFlagSet("export", flag.ExitOnError)
	importCmd := flag.NewFlagSet("import", flag.ExitOnError)

	exportOutput := exportCmd.String("output", "", "Output file path (default: classplanner_YYYYMMDD_HHMMSS.json)")
	importInput := importCmd.String("input", "", "Input file path (required)")
	importClear := importCmd.Bool("clear", false, "Replace existing sessions and timetable (WARNING: destructive)")
	importYes := importCmd.Bool("yes", false, "Skip the confirmation prompt for -clear")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if cfg.DatabaseType == "memory" {
		fmt.Fprintln(os.Stderr, "backup needs a database, DATABASE_TYPE=memory has nothing to back up")
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	if _, err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal("failed to run migrations", "error", err)
	}

	backupService := service.NewBackupService(db, log)
	ctx := context.Background()

	switch os.Args[1] {
	case "export":
		_ = exportCmd.Parse(os.Args[2:])
		handleExport(ctx, log, backupService, *exportOutput)

	case "import":
		_ = importCmd.Parse(os.Args[2:])
		if *importInput == "" {
			fmt.Println("Error: -input flag is required")
			importCmd.PrintDefaults()
			os.Exit(1)
		}
		handleImport(ctx, log, backupService, *importInput, *importClear, *importYes)

	default:
		printUsage()
		os.Exit(1)
	}
}

func handleExport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, outputPath string) {
	if outputPath == "" {
		outputPath = fmt.Sprintf("classplanner_%s.json", time.Now().Format("20060102_150405"))
	}

	if dir := filepath.Dir(outputPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatal("failed to create output directory", "dir", dir, "error", err)
		}
	}

	log.Info("exporting schedule", "output", outputPath)
	if err := backupService.Export(ctx, outputPath); err != nil {
		log.Fatal("export failed", "error", err)
	}

	if info, err := os.Stat(outputPath); err == nil {
		log.Info("export complete", "bytes", info.Size())
	}
}

func handleImport(ctx context.Context, log *logger.Logger, backupService *service.BackupService, inputPath string, clearData, yes bool) {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		log.Fatal("input file does not exist", "input", inputPath)
	}

	if clearData && !yes {
		fmt.Print("WARNING: This will delete all sessions and timetable entries. Type 'yes' to confirm: ")
		var confirmation string
		_, _ = fmt.Scanln(&confirmation)
		if confirmation != "yes" {
			log.Info("import cancelled")
			return
		}
	}

	log.Info("importing schedule", "input", inputPath, "clear", clearData)
	if err := backupService.Import(ctx, inputPath, clearData); err != nil {
		log.Fatal("import failed", "error", err)
	}
	log.Info("import complete")
}

func printUsage() {
	fmt.Println("classplanner backup tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  backup export [-output file]          Export sessions and timetable to JSON")
	fmt.Println("  backup import -input file [-clear]    Import sessions and timetable from JSON")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DATABASE_TYPE    sqlite, postgres or mysql (default: sqlite)")
	fmt.Println("  DB_PATH          SQLite database path (default: ./classplanner.db)")
	fmt.Println("  DATABASE_URL     PostgreSQL or MySQL connection URL")
}
