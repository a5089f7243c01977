package main

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitenui/ebitenui"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/milk9111/mapengine/config"
	"github.com/milk9111/mapengine/engine"
)

var errWindowClosed = errors.New("window closed")

// Game hosts the engine in an ebiten window. The engine runs on its own
// goroutine but only while Update is blocked waiting for it, so engine work
// never overlaps Update or Draw.
type Game struct {
	cfg      config.Config
	log      *log.Logger
	frame    *ebiten.Image
	renderer *screenRenderer
	pauseUI  *ebitenui.UI

	// held is written by Update and read by the engine goroutine during the
	// frame Update is waiting on.
	held map[engine.Key]bool

	tick   chan struct{}
	done   chan struct{}
	quit   chan struct{}
	result chan error
	once   sync.Once

	paused   bool
	quitting bool
	debug    bool
	tps      int
	frames   int
	err      error
	finished bool
}

func newGame(cfg config.Config, logger *log.Logger) *Game {
	frame := ebiten.NewImage(cfg.Window.Width, cfg.Window.Height)
	g := &Game{
		cfg:      cfg,
		log:      logger,
		frame:    frame,
		renderer: newScreenRenderer(frame, cfg, logger),
		held:     make(map[engine.Key]bool),
		tick:     make(chan struct{}),
		done:     make(chan struct{}),
		quit:     make(chan struct{}),
		result:   make(chan error, 1),
		tps:      -2,
	}
	g.pauseUI = NewPauseUI(g)
	return g
}

// start runs fn on the engine goroutine once the first frame is handed out.
func (g *Game) start(fn func() error) {
	go func() {
		select {
		case <-g.tick:
		case <-g.quit:
			g.result <- errWindowClosed
			return
		}
		g.result <- fn()
	}()
}

// abort makes every pending and future Pace fail.
func (g *Game) abort() {
	g.once.Do(func() { close(g.quit) })
}

// wait returns the engine goroutine's result. A script that never reaches
// another Pace is abandoned after a grace period.
func (g *Game) wait() error {
	if g.finished {
		return g.err
	}
	select {
	case err := <-g.result:
		return err
	case <-time.After(2 * time.Second):
		return fmt.Errorf("engine did not stop: %w", errWindowClosed)
	}
}

// Pace implements engine.Host. It hands the finished frame back to Update and
// blocks until Update starts the next one.
func (g *Game) Pace(frameRate int) error {
	g.setTPS(frameRate)
	select {
	case g.done <- struct{}{}:
	case <-g.quit:
		return errWindowClosed
	}
	select {
	case <-g.tick:
		return nil
	case <-g.quit:
		return errWindowClosed
	}
}

func (g *Game) setTPS(frameRate int) {
	if frameRate == g.tps {
		return
	}
	g.tps = frameRate
	if frameRate <= 0 {
		ebiten.SetTPS(ebiten.SyncWithFPS)
		return
	}
	ebiten.SetTPS(frameRate)
}

// IsKeyDown implements engine.Keyboard.
func (g *Game) IsKeyDown(k engine.Key) bool {
	return g.held[k]
}

func (g *Game) snapshotKeys() {
	for k, ek := range keymap {
		g.held[k] = ebiten.IsKeyPressed(ek)
	}
}

func (g *Game) Update() error {
	if g.finished {
		return g.exit()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		g.paused = !g.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF3) {
		g.debug = !g.debug
	}
	if g.paused {
		g.pauseUI.Update()
		if g.quitting {
			g.abort()
			return ebiten.Termination
		}
		return nil
	}

	g.snapshotKeys()
	select {
	case g.tick <- struct{}{}:
	case err := <-g.result:
		return g.finish(err)
	}
	select {
	case <-g.done:
		g.frames++
		return nil
	case err := <-g.result:
		return g.finish(err)
	}
}

func (g *Game) finish(err error) error {
	g.finished = true
	g.err = err
	return g.exit()
}

func (g *Game) exit() error {
	if g.err != nil && !errors.Is(g.err, errWindowClosed) {
		g.log.Error("game stopped", "err", g.err)
	}
	return ebiten.Termination
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.DrawImage(g.frame, nil)
	if g.debug {
		ebitenutil.DebugPrint(screen, fmt.Sprintf("Frames: %d    FPS: %.2f", g.frames, ebiten.ActualFPS()))
	}
	if g.paused {
		g.pauseUI.Draw(screen)
	}
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.cfg.Window.Width, g.cfg.Window.Height
}

// keymap translates engine key codes to ebiten keys.
var keymap = buildKeymap()

func buildKeymap() map[engine.Key]ebiten.Key {
	m := map[engine.Key]ebiten.Key{
		engine.KeyEscape:     ebiten.KeyEscape,
		engine.KeyTilde:      ebiten.KeyBackquote,
		engine.KeyMinus:      ebiten.KeyMinus,
		engine.KeyEquals:     ebiten.KeyEqual,
		engine.KeyBackspace:  ebiten.KeyBackspace,
		engine.KeyTab:        ebiten.KeyTab,
		engine.KeyOpenBrace:  ebiten.KeyBracketLeft,
		engine.KeyCloseBrace: ebiten.KeyBracketRight,
		engine.KeyEnter:      ebiten.KeyEnter,
		engine.KeySemicolon:  ebiten.KeySemicolon,
		engine.KeyQuote:      ebiten.KeyQuote,
		engine.KeyBackslash:  ebiten.KeyBackslash,
		engine.KeyBackslash2: ebiten.KeyIntlBackslash,
		engine.KeyComma:      ebiten.KeyComma,
		engine.KeyFullstop:   ebiten.KeyPeriod,
		engine.KeySlash:      ebiten.KeySlash,
		engine.KeySpace:      ebiten.KeySpace,
		engine.KeyInsert:     ebiten.KeyInsert,
		engine.KeyDelete:     ebiten.KeyDelete,
		engine.KeyHome:       ebiten.KeyHome,
		engine.KeyEnd:        ebiten.KeyEnd,
		engine.KeyPageUp:     ebiten.KeyPageUp,
		engine.KeyPageDown:   ebiten.KeyPageDown,
		engine.KeyLeft:       ebiten.KeyArrowLeft,
		engine.KeyRight:      ebiten.KeyArrowRight,
		engine.KeyUp:         ebiten.KeyArrowUp,
		engine.KeyDown:       ebiten.KeyArrowDown,
		engine.KeyShift:      ebiten.KeyShift,
		engine.KeyCtrl:       ebiten.KeyControl,
		engine.KeyAlt:        ebiten.KeyAlt,
		engine.KeyScrollLock: ebiten.KeyScrollLock,
		engine.KeyNumLock:    ebiten.KeyNumLock,
		engine.KeyCapsLock:   ebiten.KeyCapsLock,
	}
	for i := 0; i < 26; i++ {
		m[engine.KeyA+engine.Key(i)] = ebiten.KeyA + ebiten.Key(i)
	}
	for i := 0; i < 10; i++ {
		m[engine.Key0+engine.Key(i)] = ebiten.KeyDigit0 + ebiten.Key(i)
		m[engine.KeyPad0+engine.Key(i)] = ebiten.KeyNumpad0 + ebiten.Key(i)
	}
	for i := 0; i < 12; i++ {
		m[engine.KeyF1+engine.Key(i)] = ebiten.KeyF1 + ebiten.Key(i)
	}
	return m
}
