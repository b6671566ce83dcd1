package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/modkit/internal/daemon"
	"git.home.luguber.info/inful/modkit/internal/eject"
	merrors "git.home.luguber.info/inful/modkit/internal/errors"
	"git.home.luguber.info/inful/modkit/internal/generate"
	"git.home.luguber.info/inful/modkit/internal/history"
	"git.home.luguber.info/inful/modkit/internal/modconfig"
	"git.home.luguber.info/inful/modkit/internal/resolver"
)

var CLI struct {
	Dir     string `short:"C" help:"Project directory to operate in" default:"."`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Generate struct{} `cmd:"" help:"Run one generation pass over the enabled modules"`

	Watch struct{} `cmd:"" help:"Watch module sources and regenerate on change"`

	Eject struct {
		Module string `arg:"" help:"Module id to promote to an app-owned copy"`
	} `cmd:"" help:"Copy a package module into the app tree and rewrite its imports"`

	ListEjectable struct{} `cmd:"" name:"list-ejectable" help:"List enabled modules that may be ejected"`

	History struct {
		Limit int `short:"n" help:"Number of runs to show" default:"20"`
	} `cmd:"" help:"Show recent generation runs"`
}

func main() {
	ctx := kong.Parse(&CLI)

	logLevel := slog.LevelInfo
	if CLI.Verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})))

	settings := modconfig.LoadSettings()

	var err error
	switch ctx.Command() {
	case "generate":
		err = runGenerate(settings)
	case "watch":
		err = runWatch(settings)
	case "eject <module>":
		err = runEject(CLI.Eject.Module)
	case "list-ejectable":
		err = runListEjectable()
	case "history":
		err = runHistory(CLI.History.Limit)
	}
	if err != nil {
		slog.Error("Command failed",
			slog.String("command", ctx.Command()),
			slog.String("category", string(merrors.GetCategory(err))),
			slog.String("error", err.Error()))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openHistory opens the run-history store under the output directory.
// History is best-effort; a nil store just skips recording.
func openHistory(settings modconfig.Settings) *history.Store {
	if settings.HistoryDisabled {
		return nil
	}
	res, err := resolver.New(CLI.Dir)
	if err != nil {
		slog.Warn("Skipping run history", slog.String("error", err.Error()))
		return nil
	}
	store, err := history.Open(filepath.Join(res.OutputDir(), "history.db"))
	if err != nil {
		slog.Warn("Skipping run history", slog.String("error", err.Error()))
		return nil
	}
	return store
}

func runGenerate(settings modconfig.Settings) error {
	hist := openHistory(settings)
	if hist != nil {
		defer hist.Close()
	}

	runner := generate.NewRunner(CLI.Dir, hist)
	result, err := runner.Run(context.Background())
	if err != nil {
		return err
	}

	for _, artifact := range result.Artifacts {
		status := "unchanged"
		if artifact.Changed {
			status = "changed"
		}
		fmt.Printf("%-28s %s\n", artifact.Name, status)
	}
	return nil
}

func runWatch(settings modconfig.Settings) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	hist := openHistory(settings)
	if hist != nil {
		defer hist.Close()
	}

	runner := generate.NewRunner(CLI.Dir, hist)
	return daemon.New(CLI.Dir, runner, settings).Start(ctx)
}

func runEject(moduleID string) error {
	res, err := resolver.New(CLI.Dir)
	if err != nil {
		return err
	}
	if err := eject.New(res).Eject(moduleID); err != nil {
		return err
	}
	fmt.Printf("Ejected %s into %s\n", moduleID, filepath.Join(res.AppModulesDir(), moduleID))
	return nil
}

func runListEjectable() error {
	res, err := resolver.New(CLI.Dir)
	if err != nil {
		return err
	}
	modules, err := eject.New(res).ListEjectable()
	if err != nil {
		return err
	}
	if len(modules) == 0 {
		fmt.Println("No ejectable modules")
		return nil
	}
	for _, m := range modules {
		fmt.Printf("%-20s %-24s from %-12s %s\n", m.ID, m.Title, m.From, m.Description)
	}
	return nil
}

func runHistory(limit int) error {
	res, err := resolver.New(CLI.Dir)
	if err != nil {
		return err
	}
	store, err := history.Open(filepath.Join(res.OutputDir(), "history.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.Recent(context.Background(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No recorded runs")
		return nil
	}
	for _, run := range runs {
		commit := run.Commit
		if commit == "" {
			commit = "-"
		} else if len(commit) > 12 {
			commit = commit[:12]
		}
		fmt.Printf("%s  %s  modules=%d changed=%d unchanged=%d  %s  %s\n",
			run.StartedAt.Format("2006-01-02 15:04:05"), run.ID[:8],
			run.Modules, run.Changed, run.Unchanged, run.Duration.Round(time.Millisecond), commit)
	}
	return nil
}
