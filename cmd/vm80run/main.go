// vm80run loads a CP/M-style .COM image and runs it to completion,
// printing whatever it writes via BDOS functions 2/9. With -display it
// opens an SDL2 scrollback terminal instead of writing to stdout; with
// -trace it disassembles each instruction before executing it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/urfave/cli.v2"

	"github.com/go8080/vm80/cpm"
	"github.com/go8080/vm80/display"
	"github.com/go8080/vm80/io"
)

func main() {
	app := &cli.App{
		Name:  "vm80run",
		Usage: "run a CP/M-style .COM image on an 8080 core",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "display", Usage: "open an SDL2 terminal window instead of writing to stdout"},
			&cli.IntFlag{Name: "scale", Value: 1, Usage: "scale factor for the display window"},
			&cli.BoolFlag{Name: "trace", Usage: "log a disassembly of each instruction before executing it"},
			&cli.DurationFlag{Name: "timeout", Value: 30 * time.Second, Usage: "maximum wall-clock time before the run is aborted"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("vm80run: %v", err)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: vm80run <program.com>")
	}
	path := c.Args().Get(0)
	image, err := cpm.Load(path)
	if err != nil {
		return err
	}

	var sink = os.Stdout
	var term *display.Terminal
	var dev io.Device = io.NewConsole(sink)
	if c.Bool("display") {
		t, err := display.Open(c.Int("scale"))
		if err != nil {
			return fmt.Errorf("opening display: %w", err)
		}
		term = t
		defer term.Close()
		dev = io.NewConsole(term)
	}

	m := cpm.New(image, dev)
	if c.Bool("trace") {
		m.SetTracer(os.Stderr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
	defer cancel()
	result, err := m.Run(ctx)
	if term != nil {
		fmt.Fprint(term, result.Output)
	} else {
		fmt.Fprint(sink, result.Output)
	}
	if err != nil {
		return fmt.Errorf("running %q: %w (stopped: %v, instructions: %d)", path, err, result.Reason, result.Instructions)
	}
	log.Printf("%s: %s after %d instructions (%d cycles)", path, result.Reason, result.Instructions, result.Cycles)
	return nil
}
