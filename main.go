// graphoracle generates toy-language programs whose dependency graph is known
// by construction, recovers that graph from source, and mutates call sites.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/phobologic/graphoracle/internal/config"
	"github.com/phobologic/graphoracle/internal/logging"
)

var version = "dev"

var errUsage = errors.New("usage: graphoracle <generate|extract|mutate|rounds|init|version> [flags]")

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "generate":
		return runGenerate(rest, stdout, stderr)
	case "extract":
		return runExtract(rest, stdout, stderr)
	case "mutate":
		return runMutate(rest, stdout, stderr)
	case "rounds":
		return runRounds(rest, stdout, stderr)
	case "init":
		return runInit(rest, stdout, stderr)
	case "version", "-V", "--version":
		_, _ = fmt.Fprintf(stdout, "graphoracle %s\n", version)
		return nil
	case "help", "-h", "--help":
		_, _ = fmt.Fprintln(stdout, errUsage.Error())
		return nil
	}
	return fmt.Errorf("unknown command %q\n%w", cmd, errUsage)
}

// logFlags registers the logging flags shared by every subcommand.
func logFlags(fs *flag.FlagSet) (level, format *string) {
	level = fs.String("log-level", "", "log level: debug, info, warn, error (default $"+config.EnvLogLevel+" or info)")
	format = fs.String("log-format", "console", "log format: console or json")
	return level, format
}

func newLogger(stderr io.Writer, level, format string) (*zap.Logger, error) {
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}
	if level == "" {
		level = "info"
	}
	return logging.New(stderr, level, format)
}

// defaultSeed returns $GRAPHORACLE_SEED when it parses, else 1.
func defaultSeed() int64 {
	if v := os.Getenv(config.EnvSeed); v != "" {
		if seed, err := strconv.ParseInt(v, 10, 64); err == nil {
			return seed
		}
	}
	return 1
}

type boolFlag interface {
	IsBoolFlag() bool
}

// reorderArgs moves positional arguments after all flags so Go's flag package
// can parse them correctly (it stops at the first non-flag arg). Flags that
// fs does not define as booleans consume the following argument.
func reorderArgs(fs *flag.FlagSet, args []string) []string {
	takesValue := func(arg string) bool {
		name := strings.TrimLeft(arg, "-")
		if strings.Contains(name, "=") {
			return false
		}
		f := fs.Lookup(name)
		if f == nil {
			return false
		}
		if b, ok := f.Value.(boolFlag); ok && b.IsBoolFlag() {
			return false
		}
		return true
	}

	var flags, positional []string
	terminated := false
	for i := 0; i < len(args); i++ {
		if args[i] == "--" {
			positional = append(positional, args[i+1:]...)
			terminated = true
			break
		}
		if len(args[i]) > 1 && args[i][0] == '-' {
			flags = append(flags, args[i])
			if takesValue(args[i]) && i+1 < len(args) {
				i++
				flags = append(flags, args[i])
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	// Keep the terminator so positionals that look like flags stay positional.
	if terminated {
		flags = append(flags, "--")
	}
	return append(flags, positional...)
}
