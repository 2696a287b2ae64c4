package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
	logs "github.com/bartek5186/metaltronic-etl/internal/logs"
)

// wersję możesz nadpisać przez: -ldflags "-X 'main.ver=1.0.1'"
var ver = "1.0.0"

func main() {
	var (
		dataDir = flag.String("dir", "", "katalog danych (domyślnie <UserConfigDir>/metaltronic-etl)")
		runDate = flag.String("run", "", "jednorazowy przebieg dla daty YYYY-MM-DD i wyjście")
		seedDay = flag.String("seed", "", "wstaw dane demo dla daty YYYY-MM-DD (dev)")
		quiet   = flag.Bool("quiet", false, "logi tylko do pliku")
	)
	flag.Parse()

	appDir := *dataDir
	if appDir == "" {
		appDir = mustAppDataDir("metaltronic-etl")
	}
	cfgPath := filepath.Join(appDir, "config.json")
	cfg, firstRun, err := conf.LoadOrCreate(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logs.New(filepath.Join(appDir, "app.log"), !*quiet, cfg.LogLevel)
	if firstRun {
		log.Info().Msgf("Utworzono domyślną konfigurację: %s", cfgPath)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, log, appDir, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("start aplikacji nieudany")
	}
	defer a.Close()

	if *seedDay != "" {
		if err := a.seed(*seedDay); err != nil {
			log.Fatal().Err(err).Msg("seed nieudany")
		}
		if *runDate == "" {
			return
		}
	}

	// tryb jednorazowy (cron, kontener)
	if *runDate != "" {
		info, err := a.pipeline.Run(ctx, *runDate)
		out, _ := json.MarshalIndent(info, "", "  ")
		fmt.Println(string(out))
		if err != nil {
			a.Close()
			os.Exit(1)
		}
		return
	}

	a.serveMetrics(ctx)
	if cfg.AutoStart {
		if err := a.sched.Start(ctx); err != nil {
			log.Error().Err(err).Msg("AutoStart nieudany")
		} else {
			log.Info().Msgf("Metaltronic ETL %s: harmonogram działa", ver)
		}
	}

	repl(ctx, cancel, a, cfgPath)
}

func mustAppDataDir(name string) string {
	base, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	p := filepath.Join(base, name)
	_ = os.MkdirAll(p, 0o755)
	return p
}
