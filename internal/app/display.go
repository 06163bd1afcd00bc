package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/flight_recorder/internal/gps"
	"github.com/relabs-tech/flight_recorder/internal/session"
)

// displayView is everything the status screen shows.
type displayView struct {
	state   session.State
	status  session.Status
	last    *session.Result
	fix     gps.Fix
	haveFix bool
}

// StatusDisplay renders recorder state on an SSD1306 OLED.
type StatusDisplay struct {
	sched    *session.Scheduler
	fixes    func() (gps.Fix, bool)
	interval time.Duration

	mu   sync.Mutex
	last *session.Result
}

// NewStatusDisplay polls sched every interval. fixes may be nil.
func NewStatusDisplay(sched *session.Scheduler, fixes func() (gps.Fix, bool), interval time.Duration) *StatusDisplay {
	return &StatusDisplay{sched: sched, fixes: fixes, interval: interval}
}

// Handle is an EventBus subscriber remembering the last finished session.
func (d *StatusDisplay) Handle(ev Event) {
	if ev.Type != EventEnded || ev.Result == nil {
		return
	}
	res := *ev.Result
	d.mu.Lock()
	d.last = &res
	d.mu.Unlock()
}

func (d *StatusDisplay) view() displayView {
	v := displayView{}
	v.state, v.status = d.sched.Snapshot()
	d.mu.Lock()
	v.last = d.last
	d.mu.Unlock()
	if d.fixes != nil {
		v.fix, v.haveFix = d.fixes()
	}
	return v
}

// Run drives the display on the given I2C bus ("" = default) until ctx is done.
func (d *StatusDisplay) Run(ctx context.Context, busName string) error {
	// Initialize periph
	if _, err := host.Init(); err != nil {
		return fmt.Errorf("display: failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return fmt.Errorf("display: failed to open I2C bus: %w", err)
	}
	defer bus.Close()

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		return fmt.Errorf("display: failed to initialize display: %w", err)
	}
	defer dev.Halt()
	log.Printf("display: initialized on %s", bus)

	if err := dev.Draw(dev.Bounds(), renderSplash(), image.Point{}); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
		if err := dev.Draw(dev.Bounds(), renderStatus(d.view()), image.Point{}); err != nil {
			log.Printf("display: error updating display: %v", err)
		}
	}
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func drawLine(drawer *font.Drawer, row int, text string) {
	drawer.Dot = fixed.P(0, 13*(row+1))
	drawer.DrawBytes([]byte(text))
}

func renderSplash() *image1bit.VerticalLSB {
	img, drawer := newCanvas()
	drawer.Dot = fixed.P(10, 26)
	drawer.DrawBytes([]byte("Flight Rec"))
	drawer.Dot = fixed.P(5, 43)
	drawer.DrawBytes([]byte("Waiting for"))
	drawer.Dot = fixed.P(25, 56)
	drawer.DrawBytes([]byte("start"))
	return img
}

func renderStatus(v displayView) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	switch v.state {
	case session.StateRunning, session.StateClosing:
		drawLine(drawer, 0, fmt.Sprintf("REC #%d %s", v.status.Index, v.state))
		drawLine(drawer, 1, fmt.Sprintf("t=%d", v.status.Tick))
		armed := "grace"
		if v.status.Armed {
			armed = "armed"
		}
		drawLine(drawer, 2, fmt.Sprintf("q=%d %s", v.status.QuietTicks, armed))
		drawLine(drawer, 3, fmt.Sprintf("%.0fHz ovr=%d", v.status.AchievedRate(), v.status.Overruns))

	default:
		drawLine(drawer, 0, "IDLE")
		if v.last != nil {
			drawLine(drawer, 1, fmt.Sprintf("#%d %s", v.last.Index, v.last.Reason))
			drawLine(drawer, 2, fmt.Sprintf("%.0fs %d rec", v.last.Duration.Seconds(), v.last.Ticks))
		}
		if v.haveFix {
			drawLine(drawer, 3, fmt.Sprintf("%.3f %.3f", v.fix.Latitude, v.fix.Longitude))
		} else {
			drawLine(drawer, 3, "GPS: no fix")
		}
	}
	return img
}
