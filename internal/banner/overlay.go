package banner

import (
	"log/slog"
	"sync"
	"time"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
)

const (
	colorText = 0xf5f7fa
	colorBg   = 0x1f2933
)

// Overlay is an override-redirect window showing the banner. The window
// manager never sees it and the daemon never adopts it. Safe for concurrent
// use.
type Overlay struct {
	xu       *xgbutil.XUtil
	root     xproto.Window
	duration time.Duration
	corner   Corner
	logger   *slog.Logger

	mu       sync.Mutex
	window   xproto.Window
	gc       xproto.Gcontext
	font     xproto.Font
	created  bool
	disabled bool
	hideAt   *time.Timer
}

// NewOverlay creates a banner that stays up for duration.
func NewOverlay(xu *xgbutil.XUtil, duration time.Duration, corner Corner, logger *slog.Logger) *Overlay {
	if logger == nil {
		logger = slog.Default()
	}
	return &Overlay{
		xu:       xu,
		root:     xu.RootWin(),
		duration: duration,
		corner:   corner,
		logger:   logger,
	}
}

// Announce shows the summary, replacing any banner still on screen.
func (o *Overlay) Announce(s Summary) {
	if o == nil || o.duration <= 0 {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.ensureResources() {
		return
	}
	lines := Lines(s)
	width, height := size(lines)
	r := place(o.screenBounds(), o.corner, width, height)
	o.draw(r, lines)

	if o.hideAt != nil {
		o.hideAt.Stop()
	}
	o.hideAt = time.AfterFunc(o.duration, o.hide)
}

// Close destroys the X resources.
func (o *Overlay) Close() {
	if o == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.hideAt != nil {
		o.hideAt.Stop()
	}
	o.destroy()
	o.disabled = true
}

func (o *Overlay) hide() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.created {
		xproto.UnmapWindow(o.xu.Conn(), o.window)
	}
}

func (o *Overlay) screenBounds() Rect {
	screen := o.xu.Screen()
	if screen == nil {
		return Rect{Width: 800, Height: 600}
	}
	return Rect{Width: int(screen.WidthInPixels), Height: int(screen.HeightInPixels)}
}

func (o *Overlay) draw(r Rect, lines []string) {
	conn := o.xu.Conn()
	xproto.ConfigureWindow(
		conn,
		o.window,
		xproto.ConfigWindowX|xproto.ConfigWindowY|xproto.ConfigWindowWidth|xproto.ConfigWindowHeight|xproto.ConfigWindowStackMode,
		[]uint32{uint32(r.X), uint32(r.Y), uint32(r.Width), uint32(r.Height), xproto.StackModeAbove},
	)
	xproto.MapWindow(conn, o.window)
	xproto.ClearArea(conn, false, o.window, 0, 0, 0, 0)

	baseline := paddingY + lineHeight - 4
	for i, line := range lines {
		line = clip(line)
		if line == "" {
			continue
		}
		xproto.ImageText8(conn, byte(len(line)), xproto.Drawable(o.window), o.gc,
			int16(paddingX), int16(baseline+i*lineHeight), line)
	}
}

// ensureResources creates the window, font and GC once. Any failure
// disables the banner for the rest of the session.
func (o *Overlay) ensureResources() bool {
	if o.disabled {
		return false
	}
	if o.created {
		return true
	}
	if err := o.create(); err != nil {
		o.logger.Warn("user banner disabled", "error", err)
		o.destroy()
		o.disabled = true
		return false
	}
	o.created = true
	return true
}

func (o *Overlay) create() error {
	conn := o.xu.Conn()
	screen := o.xu.Screen()

	wid, err := xproto.NewWindowId(conn)
	if err != nil {
		return err
	}
	// Values follow mask bit order: back_pixel before override_redirect.
	err = xproto.CreateWindowChecked(conn, screen.RootDepth, wid, o.root,
		0, 0, 1, 1, 0,
		xproto.WindowClassInputOutput, screen.RootVisual,
		xproto.CwBackPixel|xproto.CwOverrideRedirect,
		[]uint32{colorBg, 1},
	).Check()
	if err != nil {
		return err
	}
	o.window = wid

	font, err := xproto.NewFontId(conn)
	if err != nil {
		return err
	}
	for _, name := range []string{"fixed", "9x15", "8x13", "6x13"} {
		if err = xproto.OpenFontChecked(conn, font, uint16(len(name)), name).Check(); err == nil {
			break
		}
	}
	if err != nil {
		return err
	}
	o.font = font

	gc, err := xproto.NewGcontextId(conn)
	if err != nil {
		return err
	}
	err = xproto.CreateGCChecked(conn, gc, xproto.Drawable(wid),
		xproto.GcForeground|xproto.GcBackground|xproto.GcFont|xproto.GcGraphicsExposures,
		[]uint32{colorText, colorBg, uint32(font), 0},
	).Check()
	if err != nil {
		return err
	}
	o.gc = gc
	return nil
}

func (o *Overlay) destroy() {
	conn := o.xu.Conn()
	if o.gc != 0 {
		xproto.FreeGC(conn, o.gc)
	}
	if o.font != 0 {
		xproto.CloseFont(conn, o.font)
	}
	if o.window != 0 {
		xproto.DestroyWindow(conn, o.window)
	}
	o.window, o.gc, o.font = 0, 0, 0
	o.created = false
}
