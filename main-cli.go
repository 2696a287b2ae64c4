package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	conf "github.com/bartek5186/metaltronic-etl/internal/config"
)

const help = "Komendy: run [data] | start | stop | reload | status | runs | validate [data] | seed [data] | paths | quit"

// repl – prosta pętla poleceń w terminalu.
func repl(ctx context.Context, cancel context.CancelFunc, a *app, cfgPath string) {
	fmt.Println("Metaltronic ETL CLI", ver)
	fmt.Println(help)

	lines := make(chan string)
	go func() {
		reader := bufio.NewReader(os.Stdin)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				close(lines)
				return
			}
			lines <- line
		}
	}()

	for {
		fmt.Print("> ")
		var line string
		select {
		case <-ctx.Done():
			return
		case l, ok := <-lines:
			if !ok {
				// stdin zamknięty (np. usługa): czekamy na sygnał
				<-ctx.Done()
				return
			}
			line = l
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		cmd, arg := strings.ToLower(fields[0]), ""
		if len(fields) > 1 {
			arg = fields[1]
		}

		switch cmd {
		case "run":
			date := orYesterday(arg)
			fmt.Println("Przebieg dla", date, "...")
			info, err := a.pipeline.Run(ctx, date)
			if err != nil {
				fmt.Println("Błąd:", err)
			}
			printJSON(info)
		case "start":
			if err := a.sched.Start(ctx); err != nil {
				a.log.Error().Err(err).Msg("Start error")
				fmt.Println("Błąd startu:", err)
				continue
			}
			fmt.Println("Harmonogram uruchomiony, następny przebieg:", a.sched.NextRun().Format(time.DateTime))
		case "stop":
			a.sched.Stop()
			fmt.Println("Zatrzymano")
		case "reload":
			newCfg, _, err := conf.LoadOrCreate(cfgPath)
			if err != nil {
				a.log.Error().Err(err).Msg("Błąd reloadu")
				fmt.Println("Błąd reloadu:", err)
				continue
			}
			a.cfg = newCfg
			a.sched.UpdateConfig(newCfg)
			a.log.Info().Msg("Konfiguracja przeładowana")
			fmt.Println("Konfiguracja przeładowana (bazy i źródła po restarcie)")
		case "status":
			printJSON(a.status())
		case "runs":
			recs, err := a.pipeline.Runs().Last(ctx, 5)
			if err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			for _, r := range recs {
				fmt.Printf("%s  %s  status=%d  etap=%s  próba=%d  %s\n",
					r.StartedAt.Format(time.DateTime), r.Fecha, r.Status, r.Stage, r.Attempt, r.LastError)
			}
		case "validate":
			v, err := a.validate(ctx, orYesterday(arg))
			if err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			printJSON(v)
		case "seed":
			if err := a.seed(orYesterday(arg)); err != nil {
				fmt.Println("Błąd:", err)
				continue
			}
			fmt.Println("Dane demo wstawione")
		case "paths":
			fmt.Println("Logi:", filepath.Join(a.dir, "app.log"))
			fmt.Println("Config:", cfgPath)
			fmt.Println("Staging:", a.path(a.cfg.RawDir))
			fmt.Println("Eksport:", a.path(a.cfg.ExportDir))
			if a.cfg.MetricsAddr != "" {
				fmt.Println("Metryki:", "http://"+a.cfg.MetricsAddr+"/metrics")
			}
		case "quit", "exit":
			cancel()
			a.sched.Stop()
			return
		default:
			fmt.Println("Nieznana komenda.", help)
		}
	}
}

func orYesterday(arg string) string {
	if arg == "" {
		return yesterday()
	}
	return arg
}

func printJSON(v any) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(out))
}
