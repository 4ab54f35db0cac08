package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/phobologic/graphoracle/internal/config"
)

const (
	sentinelStart = "# graphoracle:start"
	sentinelEnd   = "# graphoracle:end"
)

// ignoredArtifacts are the outputs a project usually keeps out of git, so
// that `graphoracle extract` over the project does not pick them up either.
var ignoredArtifacts = []string{
	".graphoracle-cache",
	"rounds.jsonl",
	"mutated/",
}

// runInit implements the `graphoracle init` subcommand, which writes a starter
// rounds config and a managed block in the .gitignore next to it.
func runInit(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("graphoracle init", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var dryRun, force, noIgnore bool
	fs.BoolVar(&dryRun, "dry-run", false, "print what would be written without modifying any file")
	fs.BoolVar(&force, "force", false, "overwrite an existing config file")
	fs.BoolVar(&noIgnore, "no-gitignore", false, "do not update .gitignore")

	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage: graphoracle init [flags] [path-to-config]

Write a starter rounds config (YAML) and add a graphoracle block to the
.gitignore in the same directory. The block is wrapped in sentinel comments so
it is updated in place on later runs without touching surrounding rules.

path-to-config defaults to ./%s.

Flags:
`, config.DefaultPath)
		fs.PrintDefaults()
	}

	if err := fs.Parse(reorderArgs(fs, args)); err != nil {
		return err
	}

	starter, err := config.Starter()
	if err != nil {
		return err
	}

	// --dry-run with no path: just print the config itself.
	if dryRun && fs.NArg() == 0 {
		_, _ = stdout.Write(starter)
		return nil
	}

	path := config.DefaultPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	ignorePath := filepath.Join(filepath.Dir(path), ".gitignore")

	existingIgnore, _ := os.ReadFile(ignorePath)
	updatedIgnore := applySection(string(existingIgnore), generateSection())

	if dryRun {
		_, _ = fmt.Fprintf(stdout, "--- %s\n%s", path, starter)
		if !noIgnore {
			_, _ = fmt.Fprintf(stdout, "--- %s\n%s", ignorePath, updatedIgnore)
		}
		return nil
	}

	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", path, err)
	}

	if err := os.WriteFile(path, starter, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote starter config to %s\n", path)

	if noIgnore {
		return nil
	}
	if err := os.WriteFile(ignorePath, []byte(updatedIgnore), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", ignorePath, err)
	}
	_, _ = fmt.Fprintf(stderr, "wrote graphoracle block to %s\n", ignorePath)
	return nil
}

// generateSection returns the sentinel-wrapped .gitignore block.
func generateSection() string {
	return sentinelStart + "\n" + strings.Join(ignoredArtifacts, "\n") + "\n" + sentinelEnd
}

// applySection inserts section into content, replacing an existing sentinel
// block if present or appending if not. It is a pure function for easy testing.
func applySection(content, section string) string {
	start := strings.Index(content, sentinelStart)
	end := strings.Index(content, sentinelEnd)

	if start >= 0 && end > start {
		return content[:start] + section + content[end+len(sentinelEnd):]
	}

	if content == "" {
		return section + "\n"
	}
	// Append, ensuring a blank line separator.
	if !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return content + "\n" + section + "\n"
}
