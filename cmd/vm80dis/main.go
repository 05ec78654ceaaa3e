// vm80dis disassembles a flat 8080 binary to a text listing.
package main

import (
	"fmt"
	"log"
	"os"

	"gopkg.in/urfave/cli.v2"

	"github.com/go8080/vm80/disasm"
	"github.com/go8080/vm80/memory"
)

func main() {
	app := &cli.App{
		Name:  "vm80dis",
		Usage: "disassemble a flat 8080 binary",
		Flags: []cli.Flag{
			&cli.UintFlag{Name: "origin", Value: 0, Usage: "address the binary is loaded at"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("vm80dis: %v", err)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("usage: vm80dis <binary>")
	}
	path := c.Args().Get(0)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}

	mem := memory.NewFlatRAM(false, 0x00)
	origin := uint16(c.Uint("origin"))
	mem.LoadAt(origin, data)

	pc := origin
	end := origin + uint16(len(data))
	for pc < end {
		line, n := disasm.Format(pc, mem)
		fmt.Println(line)
		pc += uint16(n)
	}
	return nil
}
