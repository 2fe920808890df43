package util

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/urfave/cli/v2"
)

// ----------------------------
// ----- Type definitions -----
// ----------------------------

// Options holds every knob the compiler's pipeline stages read from. It is
// filled in two steps: environment variables provide defaults, CLI flags
// override them.
type Options struct {
	Src       string // Path to source file. Empty means read stdin.
	Out       string // Path to output file. Empty means write to stdout.
	Exec      bool   // Run the compiled program in-memory instead of writing an ELF executable.
	PrintIR   bool   // Print the lowered function table and exit without emitting bytes.
	Verbose   bool   // Print compiler statistics to stderr.
	LLVM      bool   // Dump textual LLVM IR instead of emitting native code.
	Alignment int    // Function alignment, in bytes. Must be a power of two.
	TargetOS  int    // Output target operating system.
}

// envDefaults is populated from the environment before flags are parsed, so
// that SXC_ALIGNMENT/SXC_TARGET_OS provide defaults flags can still override.
type envDefaults struct {
	Alignment int    `env:"SXC_ALIGNMENT" envDefault:"16"`
	TargetOS  string `env:"SXC_TARGET_OS" envDefault:""`
}

// ---------------------
// ----- Constants -----
// ---------------------

const appVersion = "sxc compiler 1.0"

// Target operating system.
const (
	UnknownOS = iota
	Linux
	Windows
)

// ---------------------
// ----- functions -----
// ---------------------

// ParseArgs parses command line arguments, layering environment variable
// defaults underneath the explicit flags given on the command line.
func ParseArgs() (Options, error) {
	var ed envDefaults
	if err := env.Parse(&ed); err != nil {
		return Options{}, fmt.Errorf("could not read environment defaults: %w", err)
	}

	opt := Options{
		Alignment: ed.Alignment,
		TargetOS:  parseOSName(ed.TargetOS, runtimeDefaultOS()),
	}

	app := &cli.App{
		Name:            "sxc",
		Usage:           "compile a tiny S-expression language to x86-64",
		Version:         appVersion,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "exec", Usage: "map the compiled program into memory and run it"},
			&cli.BoolFlag{Name: "print-ir", Usage: "print the lowered IR and exit without emitting bytes"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"vb"}, Usage: "print compiler statistics to stderr"},
			&cli.BoolFlag{Name: "emit-llvm", Usage: "dump textual LLVM IR instead of emitting native code"},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "path of the output file"},
			&cli.IntFlag{Name: "alignment", Value: opt.Alignment, Usage: "function alignment in bytes, must be a power of two"},
			&cli.StringFlag{Name: "os", Usage: "target operating system: linux or windows"},
		},
		Action: func(c *cli.Context) error {
			opt.Exec = c.Bool("exec")
			opt.PrintIR = c.Bool("print-ir")
			opt.Verbose = c.Bool("verbose")
			opt.LLVM = c.Bool("emit-llvm")
			opt.Out = c.String("output")
			opt.Alignment = c.Int("alignment")
			if opt.Alignment <= 0 || opt.Alignment&(opt.Alignment-1) != 0 {
				return fmt.Errorf("--alignment must be a power of two, got %d", opt.Alignment)
			}
			if s := c.String("os"); s != "" {
				opt.TargetOS = parseOSName(s, opt.TargetOS)
			}
			if c.NArg() > 0 {
				opt.Src = c.Args().First()
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		return opt, err
	}
	return opt, nil
}

// parseOSName maps a target OS identifier to its Options constant, falling
// back to def when name is empty or unrecognised.
func parseOSName(name string, def int) int {
	switch name {
	case "linux":
		return Linux
	case "windows":
		return Windows
	default:
		return def
	}
}
