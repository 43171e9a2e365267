// Command ps2-mouse-circle emulates a PS/2 mouse on two GPIO pins and
// drives it in a steady circle, the way the firmware this module is
// modelled on does from its move-mouse-circularly example sketch.
package main

import (
	"flag"
	"log"
	"math"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/ps2dev/ps2dev"
	"github.com/ps2dev/ps2dev/mouse"
)

const (
	radius       = 500.0
	rotatePerSec = 2.0
)

func main() {
	clkName := flag.String("clk", "GPIO17", "clock line name")
	dataName := flag.String("data", "GPIO16", "data line name")
	debug := flag.Bool("debug", false, "log protocol activity")
	flag.Parse()

	if _, err := host.Init(); err != nil {
		log.Fatalf("host.Init: %v", err)
	}

	clk := gpioreg.ByName(*clkName)
	if clk == nil {
		log.Fatalf("no such GPIO pin: %s", *clkName)
	}
	data := gpioreg.ByName(*dataName)
	if data == nil {
		log.Fatalf("no such GPIO pin: %s", *dataName)
	}

	cfg := ps2dev.DefaultConfig()
	cfg.Debug = *debug

	m := mouse.New(clk, data, cfg)
	if err := m.Begin(false); err != nil {
		log.Fatalf("Begin: %v", err)
	}
	defer m.Close()

	start := time.Now()
	var lastX, lastY float64
	for range time.Tick(10 * time.Millisecond) {
		t := time.Since(start).Seconds()
		x := math.Cos(2*math.Pi*t*rotatePerSec) * radius
		y := math.Sin(2*math.Pi*t*rotatePerSec) * radius
		dx := int16(x - lastX)
		dy := int16(y - lastY)
		lastX, lastY = x, y
		m.Move(dx, dy, 0)
	}
}
