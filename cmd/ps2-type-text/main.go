// Command ps2-type-text emulates a PS/2 keyboard on two GPIO pins and
// repeatedly types a greeting, the way the firmware this module is
// modelled on does from its type-hello-world example sketch.
package main

import (
	"flag"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/ps2dev/ps2dev"
	"github.com/ps2dev/ps2dev/keyboard"
)

func main() {
	clkName := flag.String("clk", "GPIO19", "clock line name")
	dataName := flag.String("data", "GPIO18", "data line name")
	text := flag.String("text", "Hello, world! ", "text to type on each tick")
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

	kb := keyboard.New(clk, data, cfg)
	if err := kb.Begin(); err != nil {
		log.Fatalf("Begin: %v", err)
	}
	defer kb.Close()

	for {
		time.Sleep(time.Second)
		kb.TypeString(*text)
	}
}
