package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/spf13/cobra"

	"github.com/milk9111/mapengine/config"
	"github.com/milk9111/mapengine/engine"
	"github.com/milk9111/mapengine/levels"
	"github.com/milk9111/mapengine/pace"
	"github.com/milk9111/mapengine/script"
)

var (
	flagHeadless bool
	flagFrames   int
	flagWatch    bool
)

var runCmd = &cobra.Command{
	Use:   "run [game.tengo]",
	Short: "Run a game script",
	Long: `Run a tengo game script. Without an argument the bundled demo runs.

Map names are resolved against the configured maps directory first, then
against the bundled levels.

Controls (window):
  Arrows  - Walk the input person
  Space   - Talk to the person in front (configurable)
  Esc     - Pause menu

Examples:
  mapengine run
  mapengine run mygame.tengo --watch
  mapengine run --headless --frames 600 --log-level debug`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGame,
}

func init() {
	runCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Run without a window")
	runCmd.Flags().IntVar(&flagFrames, "frames", 0, "Stop after this many frames (headless only, 0 = no limit)")
	runCmd.Flags().BoolVar(&flagWatch, "watch", false, "Reload configured slot scripts when their files change")
}

func runGame(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}

	name, src := "demo", levels.Game()
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read game script: %w", err)
		}
		name, src = args[0], string(data)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := engine.Options{
		Config: cfg,
		Logger: logger.WithPrefix("engine"),
		Maps:   engine.MultiSource{engine.DirSource{Dir: cfg.MapsDir}, levels.Source{}},
	}

	if flagHeadless {
		opts.Host = pace.NewClock(ctx, flagFrames)
		e, err := engine.New(opts)
		if err != nil {
			return err
		}
		return finish(logger, play(ctx, e, logger, name, src))
	}

	g := newGame(cfg, logger)
	opts.Host = g
	opts.Renderer = g.renderer
	opts.Keyboard = g
	e, err := engine.New(opts)
	if err != nil {
		return err
	}

	ebiten.SetWindowSize(int(float64(cfg.Window.Width)*cfg.Window.Scale), int(float64(cfg.Window.Height)*cfg.Window.Scale))
	ebiten.SetWindowTitle(cfg.Window.Title)
	g.start(func() error { return play(ctx, e, logger, name, src) })
	go func() {
		<-ctx.Done()
		g.abort()
	}()

	runErr := ebiten.RunGame(g)
	g.abort()
	playErr := g.wait()
	if runErr != nil && !errors.Is(runErr, ebiten.Termination) {
		return runErr
	}
	return finish(logger, playErr)
}

// play loads the slot scripts and runs the game script to completion.
func play(ctx context.Context, e *engine.Engine, logger *log.Logger, name, src string) error {
	if err := e.LoadSlotScripts(); err != nil {
		return err
	}
	if flagWatch {
		w, err := watchSlots(ctx, e, logger)
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Close()
		}
	}
	logger.Info("starting", "script", name)
	return e.RunScript(name, src)
}

// finish turns the ways a host can end the game on purpose into a clean exit.
func finish(logger *log.Logger, err error) error {
	switch {
	case err == nil:
		logger.Info("game script finished")
		return nil
	case errors.Is(err, pace.ErrBudget):
		logger.Info("frame budget reached", "frames", flagFrames)
		return nil
	case errors.Is(err, pace.ErrAborted), errors.Is(err, errWindowClosed):
		logger.Info("stopped")
		return nil
	}
	return err
}

// watchSlots forwards changes of the configured slot script files to the
// engine. It returns nil when no slot files are configured.
func watchSlots(ctx context.Context, e *engine.Engine, logger *log.Logger) (*script.Watcher, error) {
	var dirs []string
	for _, path := range e.SlotFiles() {
		dir := filepath.Dir(path)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	if len(dirs) == 0 {
		logger.Warn("--watch given but no slot scripts are configured")
		return nil, nil
	}

	w, err := script.NewWatcher(dirs...)
	if err != nil {
		return nil, fmt.Errorf("watch scripts: %w", err)
	}
	go func() {
		for {
			select {
			case path, ok := <-w.Events:
				if !ok {
					return
				}
				e.QueueReload(path)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("script watcher", "err", err)
			case <-ctx.Done():
				return
			}
		}
	}()
	logger.Debug("watching slot scripts", "dirs", dirs)
	return w, nil
}
