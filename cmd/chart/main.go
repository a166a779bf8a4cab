package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Sennevleminckx/chart/internal/config"
	"github.com/Sennevleminckx/chart/internal/database"
	"github.com/Sennevleminckx/chart/internal/pipeline"
	"github.com/Sennevleminckx/chart/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "chart",
	Short:   "Survey statistics and radar charts",
	Long:    "chart maps survey questions onto a subdomain/domain taxonomy, computes grouped statistics, and serves the results as radar-chart data.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(preprocessCmd)
	rootCmd.AddCommand(serveCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("chart", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/chart/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to point at your survey input files.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show run history and artifact status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		total, err := db.CountRuns()
		if err != nil {
			return fmt.Errorf("counting runs: %w", err)
		}
		if total == 0 {
			fmt.Println("No recorded runs. Run 'chart preprocess' first.")
			return nil
		}

		runs, err := db.ListRuns(10)
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		fmt.Printf("Recorded runs: %d\n\n", total)
		for _, r := range runs {
			fmt.Printf("%s  %s\n", r.FinishedAt.Local().Format("2006-01-02 15:04:05"), r.ID)
			fmt.Printf("  Output: %s\n", r.OutputDir)
			fmt.Printf("  Long rows: %d, subdomain groups: %d, domain groups: %d\n",
				r.LongRows, r.SubdomainGroups, r.DomainGroups)
			if r.UnresolvedQuestions > 0 {
				fmt.Printf("  Unresolved questions: %d\n", r.UnresolvedQuestions)
			}
		}
		return nil
	},
}

// --- preprocess command ---

var (
	mappingPath    string
	itemsPath      string
	subdomainsPath string
	responsesPath  string
	outDir         string
)

var preprocessCmd = &cobra.Command{
	Use:   "preprocess",
	Short: "Run the pipeline: load -> resolve -> normalize -> aggregate -> materialize",
	RunE: func(cmd *cobra.Command, args []string) error {
		in := pipeline.Inputs{
			Mapping:    firstOf(mappingPath, cfg.Inputs.Mapping),
			Items:      firstOf(itemsPath, cfg.Inputs.Items),
			Subdomains: firstOf(subdomainsPath, cfg.Inputs.Subdomains),
			Responses:  firstOf(responsesPath, cfg.Inputs.Responses),
		}
		out := firstOf(outDir, cfg.Output.Dir)

		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		p := pipeline.New(in, out, db)
		if err := p.CheckInputs(); err != nil {
			return err
		}

		result := p.Run()
		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/5: %s\n", i+1, step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if result.Failed() {
			return fmt.Errorf("pipeline failed")
		}

		if len(result.Unresolved) > 0 {
			fmt.Printf("\n%d question(s) without taxonomy mapping (kept in long form, excluded from aggregates):\n", len(result.Unresolved))
			for _, code := range result.Unresolved {
				fmt.Printf("  %s\n", code)
			}
		}
		fmt.Println("\nPipeline complete! Run 'chart serve' to view the charts.")
		return nil
	},
}

func init() {
	preprocessCmd.Flags().StringVar(&mappingPath, "mapping", "", "Question mapping CSV (default mapping_file.csv)")
	preprocessCmd.Flags().StringVar(&itemsPath, "items", "", "Item table CSV (default \"Item-Tabel 1.csv\")")
	preprocessCmd.Flags().StringVar(&subdomainsPath, "subdomains", "", "Subdomain table CSV (default \"Subdomain-Tabel 1.csv\")")
	preprocessCmd.Flags().StringVar(&responsesPath, "responses", "", "Wide responses CSV (default transposed_data.csv)")
	preprocessCmd.Flags().StringVar(&outDir, "outdir", "", "Output directory for parquet artifacts (default data/)")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local radar-chart server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		opts := server.Options{
			DataDir:      cfg.Output.Dir,
			MappingPath:  cfg.Inputs.Mapping,
			LabelsPath:   cfg.Inputs.DomainLabels,
			CacheEntries: cfg.Server.CacheEntries,
		}

		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, opts, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

func openDB() (*database.DB, error) {
	dataDir := config.DataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(filepath.Join(dataDir, "chart.db"))
}

func firstOf(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}
