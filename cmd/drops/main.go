package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/drops/internal/acquisition"
	"github.com/banshee-data/drops/internal/config"
	"github.com/banshee-data/drops/internal/journal"
	"github.com/banshee-data/drops/internal/monitoring"
	"github.com/banshee-data/drops/internal/pipeline"
	"github.com/banshee-data/drops/internal/planner"
	"github.com/banshee-data/drops/internal/render"
	"github.com/banshee-data/drops/internal/version"
)

func main() {
	// Interrupts end the process on the spot; nothing is flushed.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("Caught signal")
		os.Exit(1)
	}()

	os.Exit(run(context.Background(), os.Args[1:], os.Stdout))
}

type options struct {
	configPath  string
	fixture     string
	debug       bool
	watch       bool
	cycles      int
	debugListen string
	plotFile    string
	htmlFile    string
	version     bool
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var o options
	fs := flag.NewFlagSet("drops", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", config.DefaultConfigPath, "Path to the JSON configuration file")
	fs.StringVar(&o.fixture, "dev", "", "Read grid data from this JSON fixture instead of the server")
	fs.BoolVar(&o.debug, "debug", false, "Print the environment, constants, obstacles and path")
	fs.BoolVar(&o.watch, "watch", false, "Keep replanning every watch_interval")
	fs.IntVar(&o.cycles, "cycles", 0, "Stop watching after this many cycles (0 = until interrupted)")
	fs.StringVar(&o.debugListen, "debug-listen", "", "Serve /debug/ routes on this address in watch mode")
	fs.StringVar(&o.plotFile, "plot", "", "Write a PNG plot of the grid and path")
	fs.StringVar(&o.htmlFile, "html", "", "Write an HTML heatmap of the grid and path")
	fs.BoolVar(&o.version, "version", false, "Print the version and exit")
	err := fs.Parse(args)
	return o, err
}

func run(ctx context.Context, args []string, stdout io.Writer) int {
	opts, err := parseFlags(args, os.Stderr)
	if err != nil {
		return 1
	}
	if opts.version {
		fmt.Fprintln(stdout, version.String())
		return 0
	}

	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		log.Printf("failed to load config %s: %v", opts.configPath, err)
		fmt.Fprintln(stdout, "Error with config: EXITING")
		return 1
	}

	if opts.debug {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	} else {
		pipeline.SetLogWriters(os.Stderr, nil, nil)
		monitoring.SetLogger(nil)
	}

	var recorder pipeline.Recorder
	if path := cfg.GetJournalPath(); path != "" {
		j, err := journal.Open(path)
		if err != nil {
			log.Printf("failed to open journal: %v", err)
		} else {
			defer j.Close()
			recorder = j
			if opts.watch && opts.debugListen != "" {
				serveDebug(j, opts.debugListen)
			}
		}
	} else if opts.debugListen != "" {
		log.Printf("-debug-listen needs journal_path in the config; not serving")
	}

	coord := acquisition.New(cfg, acquisition.NewSource(cfg, opts.fixture))
	p := planner.New(planner.OptionsFromConfig(cfg)...)
	runnerOpts := []pipeline.Option{pipeline.WithFetchTimeout(cfg.GetFetchTimeout())}
	if recorder != nil {
		runnerOpts = append(runnerOpts, pipeline.WithRecorder(recorder))
	}
	runner := pipeline.NewRunner(coord, p, runnerOpts...)

	fmt.Fprintln(stdout, "Waiting for first data from server")
	out := &reporter{w: stdout, cfg: cfg, opts: opts}

	if opts.watch {
		err = runner.Watch(ctx, cfg.GetWatchInterval(), opts.cycles, out.report)
	} else {
		var rep pipeline.Report
		rep, err = runner.Cycle(ctx)
		if err == nil {
			out.report(rep)
		}
	}
	switch {
	case errors.Is(err, pipeline.ErrNoInitialData):
		log.Printf("%v", err)
		fmt.Fprintln(stdout, "Failed to get grid data from server!")
		return 1
	case err != nil:
		log.Printf("planning cycle failed: %v", err)
		return 1
	}
	return 0
}

func serveDebug(j *journal.Journal, addr string) {
	mux := http.NewServeMux()
	if err := j.AttachAdminRoutes(mux, planner.PathFound.String()); err != nil {
		log.Printf("failed to attach debug routes: %v", err)
		return
	}
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
			log.Printf("debug server stopped: %v", err)
		}
	}()
	log.Printf("serving debug routes on %s", addr)
}

type reporter struct {
	w    io.Writer
	cfg  *config.Config
	opts options
}

func (r *reporter) report(rep pipeline.Report) {
	w := r.w
	cellSize := rep.Constants.CellSizeMeters

	if rep.Seq == 1 || rep.Reinitialized {
		fmt.Fprintf(w, "Height: %d\n", rep.Env.Height)
		fmt.Fprintf(w, "Width: %d\n", rep.Env.Width)
	}
	if r.opts.debug {
		render.EnvSummary(w, rep.Env)
		render.ConstantsSummary(w, rep.Constants)
		render.ObstacleListing(w, rep.Obstacles)
	}

	fmt.Fprintf(w, "Communication Time(ms): %d\n", rep.Communication.Milliseconds())
	fmt.Fprintf(w, "Planner Init Time(ms): %d\n", rep.Init.Milliseconds())
	fmt.Fprintf(w, "Update Planner Time(ms): %d\n", rep.Update.Milliseconds())
	fmt.Fprintf(w, "Planning Time(ms): %d\n", rep.Planning.Milliseconds())

	if r.cfg.GetRenderGrid() {
		if err := render.Grid(w, rep.Env, rep.Obstacles, rep.Path, cellSize); err != nil {
			log.Printf("failed to render grid: %v", err)
		}
	}

	if rep.Status == planner.PathFound {
		fmt.Fprintln(w, "Has path")
		if r.opts.debug {
			render.PathListing(w, rep.Path)
		}
	} else {
		fmt.Fprintln(w, "NO PATH FOUND")
	}

	if r.opts.plotFile != "" {
		if err := render.SavePNG(r.opts.plotFile, rep.Env, rep.Path, cellSize); err != nil {
			log.Printf("failed to save plot: %v", err)
		}
	}
	if r.opts.htmlFile != "" {
		if err := writeHTML(r.opts.htmlFile, rep); err != nil {
			log.Printf("failed to write html: %v", err)
		}
	}
}

func writeHTML(file string, rep pipeline.Report) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}
	if err := render.WriteHTML(f, rep.Env, rep.Path, rep.Constants.CellSizeMeters); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
