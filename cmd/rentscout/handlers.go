package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/ewanmck/rentscout/internal/config"
	"github.com/ewanmck/rentscout/internal/runlog"
	"github.com/ewanmck/rentscout/internal/store"
	"github.com/ewanmck/rentscout/pkg/geo"
	"github.com/ewanmck/rentscout/pkg/logging"
	"github.com/ewanmck/rentscout/pkg/property"
	"github.com/ewanmck/rentscout/pkg/score"
	"github.com/ewanmck/rentscout/pkg/scrape"
	"github.com/ewanmck/rentscout/pkg/server"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func refNames(cfg *config.Config) (string, string) {
	return cfg.ReferencePoints[0].Name, cfg.ReferencePoints[1].Name
}

func refList(cfg *config.Config) []string {
	a, b := refNames(cfg)
	return []string{a, b}
}

func buildEnricher(cfg *config.Config, cache geo.Cache, log *logging.Logger) *geo.Enricher {
	var routes *geo.RoutesClient
	if cfg.Routes.APIKey != "" {
		routes = geo.NewRoutesClient(cfg.Routes.APIKey,
			geo.WithRoutesEndpoint(cfg.Routes.Endpoint),
			geo.WithRoutesBatchSize(cfg.Routes.BatchSize),
		)
	}
	geocoder := geo.NewNominatim(
		geo.WithNominatimURL(cfg.Geocode.URL),
		geo.WithNominatimUserAgent(cfg.Geocode.UserAgent),
	)
	return geo.NewEnricher(routes, geocoder, cache, cfg.ReferencePoints, log)
}

func runScrape(ctx context.Context, searchURL, output string, pages int, sizes bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)
	defer log.Sync()

	if pages <= 0 {
		pages = cfg.Scrape.MaxPages
	}

	recorder := runlog.NewRecorder(cfg.RunLogDir)
	run, err := recorder.Start("scrape")
	if err != nil {
		return fmt.Errorf("start run log: %w", err)
	}
	run.Input = searchURL
	run.Output = output

	err = func() error {
		client := scrape.New(log,
			scrape.WithUserAgent(cfg.Scrape.UserAgent),
			scrape.WithMaxPages(pages),
		)
		records, err := client.Search(ctx, searchURL)
		if err != nil {
			return fmt.Errorf("scrape listings: %w", err)
		}
		run.AddMetric("listings_scraped", int64(len(records)))

		if sizes {
			records, err = client.EnrichSizes(ctx, records)
			if err != nil {
				return fmt.Errorf("fetch floor areas: %w", err)
			}
		}

		if err := property.WriteFile(output, refList(cfg), records); err != nil {
			return err
		}
		log.Info("listings written", "file", output, "records", len(records))
		return nil
	}()
	if ferr := recorder.Finish(run, err); ferr != nil && err == nil {
		return ferr
	}
	return err
}

func runEnrich(ctx context.Context, input, output string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)
	defer log.Sync()

	if output == "" {
		output = input
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open lookup cache: %w", err)
	}
	defer db.Close()

	recorder := runlog.NewRecorder(cfg.RunLogDir)
	run, err := recorder.Start("enrich")
	if err != nil {
		return fmt.Errorf("start run log: %w", err)
	}
	run.Input = input
	run.Output = output

	err = func() error {
		table, err := property.ReadFile(input, refList(cfg))
		if err != nil {
			return err
		}
		run.AddMetric("records_read", int64(len(table.Records)))

		enricher := buildEnricher(cfg, db, log)
		enriched, err := enricher.Enrich(ctx, table.Records)
		if err != nil {
			return err
		}

		if err := property.WriteFile(output, refList(cfg), enriched); err != nil {
			return err
		}
		log.Info("enriched listings written", "file", output, "records", len(enriched))
		return nil
	}()
	if ferr := recorder.Finish(run, err); ferr != nil && err == nil {
		return ferr
	}
	return err
}

func runScore(ctx context.Context, input, output, modeFlag string, noClean bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if modeFlag != "" {
		cfg.Scoring.Mode = modeFlag
	}
	log := logging.New(cfg.Logging.Level)
	defer log.Sync()

	mode, err := score.ParseMode(cfg.Scoring.Mode)
	if err != nil {
		return err
	}
	weights, err := cfg.Scoring.ResolveWeights()
	if err != nil {
		return err
	}

	refA, refB := refNames(cfg)
	engine, err := score.NewEngine(mode, weights, cfg.Scoring.ResolvePenalties(), refA, refB, log)
	if err != nil {
		return err
	}

	recorder := runlog.NewRecorder(cfg.RunLogDir)
	run, err := recorder.Start("score")
	if err != nil {
		return fmt.Errorf("start run log: %w", err)
	}
	run.Mode = string(mode)
	run.Input = input
	run.Output = output

	err = func() error {
		table, err := property.ReadFile(input, refList(cfg))
		if err != nil {
			return err
		}
		run.AddMetric("records_read", int64(len(table.Records)))

		if missing := table.MissingColumns(engine.RequiredColumns()); len(missing) > 0 {
			return fmt.Errorf("input %s lacks columns required by mode %s: %v", input, mode, missing)
		}

		records := table.Records
		if cfg.Cleaning.Enabled && !noClean {
			cleaner := score.NewCleaner(cfg.Cleaning, refA, refB, log)
			records = cleaner.Clean(records)
			run.AddMetric("records_removed_cleaning", int64(len(table.Records)-len(records)))
		}

		results := engine.Score(records)

		scores := make(map[string]map[string]float64, len(results))
		scored := 0
		for id, res := range results {
			if res.Combined == nil {
				continue
			}
			m := make(map[string]float64, len(res.Factors)+1)
			for col, v := range res.Factors {
				m[col] = v
			}
			m[property.ColCombinedScore] = *res.Combined
			scores[id] = m
			scored++
		}
		run.AddMetric("records_scored", int64(scored))
		run.AddMetric("records_unscored", int64(len(records)-scored))

		if err := property.WriteScoredFile(output, refList(cfg), records, engine.ScoreColumns(), scores); err != nil {
			return err
		}
		log.Info("scored listings written",
			"file", output, "mode", string(mode),
			"records", len(records), "scored", scored, "unscored", len(records)-scored)
		return nil
	}()
	if ferr := recorder.Finish(run, err); ferr != nil && err == nil {
		return ferr
	}
	return err
}

func runReport(input string, jsonOutput bool, limit int) error {
	rows, err := server.ReadScoredRows(input)
	if err != nil {
		return err
	}
	if limit > 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	for i := range rows {
		rows[i].Rank = i + 1
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("no scored listings found (score a file first: rentscout score)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RANK\tSCORE\tPRICE\tBEDS\tADDRESS")
	for _, row := range rows {
		fmt.Fprintf(w, "%d\t%.2f\t%s\t%s\t%s\n",
			row.Rank, row.Score,
			row.Fields[property.ColPrice], row.Fields[property.ColBedrooms],
			row.Address)
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logging.New(cfg.Logging.Level)
	defer log.Sync()

	if port == 0 {
		port = cfg.Server.Port
	}

	// Surface cache health at startup; the server itself only reads CSVs.
	if db, err := store.New(cfg.Database.Path); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if stats, err := db.CacheStats(ctx); err == nil {
			log.Info("lookup cache",
				"routes", stats.Routes, "route_negatives", stats.RouteNegatives,
				"geocodes", stats.Geocodes, "geocode_misses", stats.GeocodeMisses)
		}
		cancel()
		db.Close()
	}

	srv := server.New(cfg.Server.ResultsDir, port, log)
	return srv.ListenAndServe()
}
