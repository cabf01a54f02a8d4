package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rentscout",
		Short: "Score rental listings by commute, price and livability",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(scrapeCmd())
	root.AddCommand(enrichCmd())
	root.AddCommand(scoreCmd())
	root.AddCommand(reportCmd())
	root.AddCommand(serveCmd())

	return root
}

func scrapeCmd() *cobra.Command {
	var (
		output string
		pages  int
		sizes  bool
	)

	cmd := &cobra.Command{
		Use:   "scrape <search-url>",
		Short: "Scrape rental listings from a search results URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScrape(cmd.Context(), args[0], output, pages, sizes)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "listings.csv", "output CSV path")
	cmd.Flags().IntVar(&pages, "pages", 0, "max result pages to fetch (default: from config)")
	cmd.Flags().BoolVar(&sizes, "sizes", false, "also fetch detail pages for floor areas")
	return cmd
}

func enrichCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "enrich <listings.csv>",
		Short: "Fill in distances and travel times to the reference points",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(cmd.Context(), args[0], output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output CSV path (default: overwrite input)")
	return cmd
}

func scoreCmd() *cobra.Command {
	var (
		output  string
		mode    string
		noClean bool
	)

	cmd := &cobra.Command{
		Use:   "score <listings.csv>",
		Short: "Score enriched listings and write the ranked CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.Context(), args[0], output, mode, noClean)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "scored.csv", "output CSV path")
	cmd.Flags().StringVar(&mode, "mode", "", "scoring mode: full, no-size, no-transit, minimal (default: from config)")
	cmd.Flags().BoolVar(&noClean, "no-clean", false, "skip the data cleaning pre-pass")
	return cmd
}

func reportCmd() *cobra.Command {
	var (
		jsonOutput bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "report <scored.csv>",
		Short: "Show the top-ranked listings from a scored CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(args[0], jsonOutput, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().IntVar(&limit, "limit", 15, "max listings to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve result CSVs over HTTP for the review UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
