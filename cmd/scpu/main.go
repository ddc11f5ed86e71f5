// Command scpu is the Solarium front end: assemble text into a word
// image, disassemble a word image back to text, and run an image on
// the CPU core, optionally bridging its serial device to the host
// terminal.
package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v2"

	"github.com/cessnao3/scpu/asm"
	"github.com/cessnao3/scpu/vm"
)

// serialBase is where run/--interactive installs the reference Serial
// I/O device, immediately after the program+stack segment so the two
// never overlap (spec §8 scenario 4 uses the same address).
const serialBase vm.Word = 0x1000

func main() {
	app := &cli.App{
		Name:  "scpu",
		Usage: "assemble, disassemble, and run Solarium word images",
		Commands: []*cli.Command{
			asmCommand(),
			disasmCommand(),
			runCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func asmCommand() *cli.Command {
	return &cli.Command{
		Name:      "asm",
		Usage:     "assemble a source file into a word image",
		ArgsUsage: "<input.asm>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: string(formatHex), Usage: "output format: raw, hex, c"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
		},
		Action: func(c *cli.Context) error {
			input := c.Args().First()
			if input == "" {
				return cli.Exit("usage: scpu asm <input.asm>", 1)
			}

			src, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}

			words, err := asm.Assemble(string(src))
			if err != nil {
				return fmt.Errorf("assembling %s: %w", input, err)
			}

			out, err := encodeWords(words, outputFormat(c.String("format")))
			if err != nil {
				return err
			}
			return writeOutput(c.String("output"), out)
		},
	}
}

func disasmCommand() *cli.Command {
	return &cli.Command{
		Name:      "disasm",
		Usage:     "disassemble a raw word image into Solarium assembly text",
		ArgsUsage: "<image.bin>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default stdout)"},
		},
		Action: func(c *cli.Context) error {
			input := c.Args().First()
			if input == "" {
				return cli.Exit("usage: scpu disasm <image.bin>", 1)
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}

			words, err := decodeRaw(data)
			if err != nil {
				return fmt.Errorf("decoding %s: %w", input, err)
			}

			text, err := asm.Disassemble(words)
			if err != nil {
				return fmt.Errorf("disassembling %s: %w", input, err)
			}
			return writeOutput(c.String("output"), []byte(text))
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "assemble and run a Solarium source file",
		ArgsUsage: "<input.asm>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "raw", Usage: "treat the input file as a raw word image instead of assembly source"},
			&cli.BoolFlag{Name: "interactive", Aliases: []string{"i"}, Usage: "bridge the serial device to the host terminal"},
			&cli.Int64Flag{Name: "steps", Value: -1, Usage: "stop after this many steps (-1 = run to completion or error)"},
		},
		Action: func(c *cli.Context) error {
			input := c.Args().First()
			if input == "" {
				return cli.Exit("usage: scpu run <input.asm>", 1)
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("reading %s: %w", input, err)
			}

			var words []vm.Word
			if c.Bool("raw") {
				words, err = decodeRaw(data)
			} else {
				words, err = asm.Assemble(string(data))
			}
			if err != nil {
				return fmt.Errorf("loading %s: %w", input, err)
			}

			cpu, device, err := buildMachine(words)
			if err != nil {
				return err
			}

			if c.Bool("interactive") {
				console, err := newConsole(device)
				if err != nil {
					return err
				}
				defer console.Restore()
			}

			return runLoop(cpu, c.Int64("steps"))
		},
	}
}

// buildMachine lays out memory the way the vm package's own tests do:
// one read-write segment covering the program and the canonical stack
// window, followed by a serial device immediately after it.
func buildMachine(words []vm.Word) (*vm.CPU, *vm.SerialDevice, error) {
	size := int(vm.StackBase) + int(vm.StackMax)
	image := make([]vm.Word, size)
	copy(image, words)

	mem := vm.NewMemoryMap()
	if err := mem.Add(vm.NewReadWriteSegmentFromImage(0, image)); err != nil {
		return nil, nil, fmt.Errorf("installing program segment: %w", err)
	}

	device := vm.NewSerialDevice(serialBase)
	if err := mem.Add(device); err != nil {
		return nil, nil, fmt.Errorf("installing serial device: %w", err)
	}

	return vm.NewCPU(mem, 0), device, nil
}

func runLoop(cpu *vm.CPU, maxSteps int64) error {
	for steps := int64(0); maxSteps < 0 || steps < maxSteps; steps++ {
		if err := cpu.Step(); err != nil {
			return fmt.Errorf("step %d: %w", steps, err)
		}
	}
	return nil
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
