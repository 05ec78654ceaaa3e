// vm80asm turns a hand-written mnemonic listing into a flat 8080
// binary, for authoring test fixtures without hand-counting opcode
// bytes. A listing file goes in, a flat binary comes out; it calls the
// asm package directly instead of shelling out to egrep/sed/cut.
package main

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/urfave/cli.v2"

	"github.com/go8080/vm80/asm"
)

func main() {
	app := &cli.App{
		Name:  "vm80asm",
		Usage: "assemble a mnemonic listing into a flat 8080 binary",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "offset", Value: 0, Usage: "pad the output with this many zero bytes before the assembled program"},
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatalf("vm80asm: %v", err)
	}
}

func run(c *cli.Context) error {
	if c.Args().Len() != 2 {
		return fmt.Errorf("usage: vm80asm <input listing> <output binary>")
	}
	in, out := c.Args().Get(0), c.Args().Get(1)

	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("opening %q: %w", in, err)
	}
	defer f.Close()

	output := make([]byte, c.Int("offset"))
	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, ";") {
			continue
		}
		instr, err := assembleLine(text)
		if err != nil {
			return fmt.Errorf("line %d %q: %w", line, text, err)
		}
		output = append(output, instr...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading %q: %w", in, err)
	}

	if err := os.WriteFile(out, output, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", out, err)
	}
	return nil
}

// assembleLine parses one listing line of the form "MNEMONIC arg,arg"
// and assembles it via asm.B. Register/pair/condition names are passed
// through as-is; anything else is parsed as a hex or decimal number.
func assembleLine(text string) (b []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	fields := strings.SplitN(text, " ", 2)
	mnemonic := fields[0]
	var args []interface{}
	if len(fields) == 2 {
		for _, raw := range strings.Split(fields[1], ",") {
			args = append(args, parseArg(strings.TrimSpace(raw)))
		}
	}
	return asm.B(mnemonic, args...), nil
}

func parseArg(s string) interface{} {
	switch s {
	case "B", "C", "D", "E", "H", "L", "M", "A", "SP", "PSW", "NZ", "Z", "NC", "PO", "PE", "P":
		return s
	}
	base := 10
	trimmed := s
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		base = 16
		trimmed = s[2:]
	} else if strings.HasSuffix(strings.ToUpper(s), "H") {
		base = 16
		trimmed = s[:len(s)-1]
	}
	v, err := strconv.ParseInt(trimmed, base, 32)
	if err != nil {
		panic(fmt.Sprintf("invalid argument %q: %v", s, err))
	}
	return int(v)
}
