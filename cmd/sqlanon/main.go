// Package main contains the cli implementation of the tool. It uses the
// cobra package for cli tool implementation.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"sqlanon/internal/config"
	"sqlanon/internal/dump"
	"sqlanon/internal/lint"
	"sqlanon/internal/verify"
)

type anonymizeFlags struct {
	configFile string
	debug      bool
	statsFile  string
}

type lintFlags struct {
	configFile string
	dumpFile   string
}

type verifyFlags struct {
	dsn     string
	timeout int
}

func main() {
	rootCmd := &cobra.Command{
		Use:     "sqlanon",
		Short:   "Streaming anonymizer for MySQL dumps",
		Version: "0.1.0",
	}

	rootCmd.AddCommand(anonymizeCmd())
	rootCmd.AddCommand(lintCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func anonymizeCmd() *cobra.Command {
	flags := &anonymizeFlags{}
	cmd := &cobra.Command{
		Use:   "anonymize",
		Short: "Anonymize a MySQL dump read from stdin, written to stdout",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runAnonymize(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configFile, "config", "f", "", "Path to the anonymization config file (required)")
	cmd.Flags().BoolVarP(&flags.debug, "debug", "d", false, "Disable output buffering")
	cmd.Flags().StringVar(&flags.statsFile, "stats-file", "", "Write end-of-run hit-count statistics to this TOML file")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runAnonymize(flags *anonymizeFlags) error {
	f, err := os.Open(flags.configFile)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	src, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := config.NewParser(string(src)).Parse()
	if err != nil {
		return err
	}

	proc := dump.NewProcessor(cfg, nil)
	proc.Unbuffered = flags.debug
	if err := proc.Process(os.Stdin, os.Stdout); err != nil {
		return err
	}

	reportUnusedRules(cfg)

	if flags.statsFile != "" {
		if err := writeStats(cfg, flags.statsFile); err != nil {
			return err
		}
	}

	return nil
}

type fieldStat struct {
	Table    string `toml:"table"`
	Field    string `toml:"field"`
	HitCount uint64 `toml:"hit_count"`
}

type jsonPathStat struct {
	Table    string `toml:"table"`
	Field    string `toml:"field"`
	Path     string `toml:"path"`
	HitCount uint64 `toml:"hit_count"`
}

type runStats struct {
	Fields    []fieldStat    `toml:"fields"`
	JSONPaths []jsonPathStat `toml:"json_paths"`
}

func writeStats(cfg *config.Config, path string) error {
	var stats runStats
	for _, table := range cfg.Tables {
		for _, field := range table.Fields {
			stats.Fields = append(stats.Fields, fieldStat{
				Table:    table.Name,
				Field:    field.Name,
				HitCount: field.Rule.HitCount,
			})
			for _, sub := range field.JSONSubRules {
				stats.JSONPaths = append(stats.JSONPaths, jsonPathStat{
					Table:    table.Name,
					Field:    field.Name,
					Path:     sub.Path,
					HitCount: sub.HitCount,
				})
			}
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create stats file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if err := toml.NewEncoder(f).Encode(stats); err != nil {
		return fmt.Errorf("failed to write stats file: %w", err)
	}
	return nil
}

func reportUnusedRules(cfg *config.Config) {
	for _, table := range cfg.Tables {
		for _, field := range table.Fields {
			if field.Rule.HitCount == 0 {
				fmt.Fprintf(os.Stderr, "warning: field %s in table %s was never anonymized (hit_count == 0)\n", field.Name, table.Name)
			}
			for _, sub := range field.JSONSubRules {
				if sub.HitCount == 0 {
					fmt.Fprintf(os.Stderr, "warning: JSON path %s for field %s in table %s was never anonymized (hit_count == 0)\n", sub.Path, field.Name, table.Name)
				}
			}
		}
	}
}

func lintCmd() *cobra.Command {
	flags := &lintFlags{}
	cmd := &cobra.Command{
		Use:   "lint",
		Short: "Cross-check a config's field rules against a sample dump's CREATE TABLE columns",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLint(flags)
		},
	}

	cmd.Flags().StringVarP(&flags.configFile, "config", "f", "", "Path to the anonymization config file (required)")
	cmd.Flags().StringVar(&flags.dumpFile, "dump", "", "Path to a sample dump to lint against (required)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("dump")

	return cmd
}

func runLint(flags *lintFlags) error {
	src, err := os.ReadFile(flags.configFile)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := config.NewParser(string(src)).Parse()
	if err != nil {
		return err
	}

	dumpFile, err := os.Open(flags.dumpFile)
	if err != nil {
		return fmt.Errorf("failed to open dump file: %w", err)
	}
	defer func() {
		_ = dumpFile.Close()
	}()

	findings, err := lint.Check(dumpFile, cfg)
	if err != nil {
		return err
	}

	if len(findings) == 0 {
		fmt.Println("lint: no issues found")
		return nil
	}

	for _, finding := range findings {
		fmt.Println(finding.String())
	}
	return nil
}

func verifyCmd() *cobra.Command {
	flags := &verifyFlags{}
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Probe connectivity to a destination DSN before loading an anonymized dump",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runVerify(flags)
		},
	}

	cmd.Flags().StringVar(&flags.dsn, "dsn", "", "Destination database connection string (required)")
	cmd.Flags().IntVar(&flags.timeout, "timeout", 10, "Connection timeout in seconds")
	_ = cmd.MarkFlagRequired("dsn")

	return cmd
}

func runVerify(flags *verifyFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(flags.timeout)*time.Second)
	defer cancel()

	if err := verify.Probe(ctx, flags.dsn); err != nil {
		return err
	}

	fmt.Println("verify: connection successful")
	return nil
}
