package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/saleflow/backend/internal/app"
	"github.com/saleflow/backend/internal/config"
	"github.com/saleflow/backend/internal/db"
	"github.com/saleflow/backend/internal/logger"
)

// HealthResponse mirrors the /health payload.
type HealthResponse struct {
	Status    string                     `json:"status"`
	Timestamp string                     `json:"timestamp"`
	Version   string                     `json:"version"`
	Services  map[string]json.RawMessage `json:"services"`
}

func loadConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	logger.Initialize(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, Format: cfg.LogFormat})
	return cfg
}

// openApp wires every service. The caller closes it.
func openApp() *app.App {
	a, err := app.New(loadConfig())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting: %v\n", err)
		os.Exit(1)
	}
	return a
}

var rootCmd = &cobra.Command{
	Use:   "saleflowctl",
	Short: "Administrative tasks for the SaleFlow backend",
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the postgres schema",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		database, err := db.Connect(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening database: %v\n", err)
			os.Exit(1)
		}
		defer db.Close(database)

		if err := db.AutoMigrate(database); err != nil {
			fmt.Fprintf(os.Stderr, "Error running migrations: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Database migrations completed successfully!")
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Bootstrap the root account and load departments and users from a JSON file",
	Run: func(cmd *cobra.Command, args []string) {
		path, _ := cmd.Flags().GetString("file")
		data, err := app.LoadSeedFile(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		a := openApp()
		defer a.Close()

		ctx := context.Background()
		if err := a.Bootstrap(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		res, err := app.Seed(ctx, a.Store, data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeding completed: %d created, %d already present\n", res.Created, res.Skipped)
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List departments whose parent no longer exists",
	Run: func(cmd *cobra.Command, args []string) {
		a := openApp()
		defer a.Close()

		orphans, err := a.Departments.Orphans(context.Background())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if len(orphans) == 0 {
			fmt.Println("No orphaned departments.")
			return
		}
		for _, d := range orphans {
			fmt.Printf("%-16s %-12s %s (parent %s)\n", d.ID, d.Level, d.Name, d.ParentID)
		}
	},
}

var exportCmd = &cobra.Command{
	Use:   "export-projects <user-id>",
	Short: "Write a user's project ledger to an xlsx workbook",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, _ := cmd.Flags().GetString("out")

		a := openApp()
		defer a.Close()

		f, filename, err := a.Exports.ProjectsWorkbook(context.Background(), args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		path := filepath.Join(dir, filename)
		if err := f.SaveAs(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		fmt.Printf("Exported projects to %s\n", path)
	},
}

var healthCmd = &cobra.Command{
	Use:   "health [url]",
	Short: "Check a running server's /health endpoint",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		url := "http://localhost:8080/health"
		if len(args) > 0 {
			url = args[0]
		}

		client := &http.Client{Timeout: 10 * time.Second}
		resp, err := client.Get(url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error connecting to health endpoint: %v\n", err)
			os.Exit(1)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading response: %v\n", err)
			os.Exit(1)
		}

		var health HealthResponse
		if err := json.Unmarshal(body, &health); err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing response: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Status: %s (HTTP %d)\n", health.Status, resp.StatusCode)
		fmt.Printf("Version: %s\n", health.Version)
		for name, raw := range health.Services {
			fmt.Printf("  %s: %s\n", name, string(raw))
		}
		if resp.StatusCode != http.StatusOK || health.Status != "ok" {
			os.Exit(1)
		}
	},
}

func init() {
	seedCmd.Flags().StringP("file", "f", "data/seed.json", "Seed file with departments and users")
	exportCmd.Flags().StringP("out", "o", ".", "Directory to write the workbook into")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(orphansCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
