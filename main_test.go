package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleProgram = `def helper(parameter):
    return parameter

def other(parameter):
    return parameter

class Worker:
    def run(self, parameter):
        helper(parameter)
        return parameter

def entry(parameter):
    w = Worker()
    w.run(parameter)
    other(parameter)
    return helper(parameter)

def main():
    entry(1)
`

func TestRunNoCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run(nil, &stdout, &stderr); err == nil {
		t.Fatal("expected usage error")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"explode"}, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), `unknown command "explode"`) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunVersion(t *testing.T) {
	t.Parallel()

	for _, arg := range []string{"version", "-V", "--version"} {
		var stdout, stderr bytes.Buffer
		if err := run([]string{arg}, &stdout, &stderr); err != nil {
			t.Fatalf("%s: %v", arg, err)
		}
		if !strings.HasPrefix(stdout.String(), "graphoracle ") {
			t.Errorf("%s: got %q", arg, stdout.String())
		}
	}
}

func TestGenerateToStdout(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", "-n", "4", "-mode", "chain", "-seed", "3", "-log-level", "error"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "import math\nimport random\n") {
		t.Errorf("missing imports:\n%s", out)
	}
	if !strings.Contains(out, "def main():") {
		t.Error("missing driver")
	}
	if strings.Contains(out, "edges[") {
		t.Error("gold graph should not be printed without -o or -gold")
	}

	var again bytes.Buffer
	if err := run([]string{"generate", "-n", "4", "-mode", "chain", "-seed", "3", "-log-level", "error"}, &again, &stderr); err != nil {
		t.Fatal(err)
	}
	if again.String() != out {
		t.Error("same seed should produce the same program")
	}
}

func TestGenerateToFileThenExtract(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := filepath.Join(dir, "prog.py")

	var stdout, stderr bytes.Buffer
	err := run([]string{"generate", "-n", "5", "-mode", "chain", "-o", prog, "-log-level", "error"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("generate: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "nodes[5]{index,name,kind,input,output,parents}:") {
		t.Errorf("missing gold nodes table:\n%s", stdout.String())
	}
	if !strings.Contains(stdout.String(), "edges[4]{from,to}:") {
		t.Errorf("chain of five should have four gold edges:\n%s", stdout.String())
	}

	var out bytes.Buffer
	if err := run([]string{"extract", prog, "-log-level", "error"}, &out, &stderr); err != nil {
		t.Fatalf("extract: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(out.String(), "nodes[5]{name,kind,line,rank}:") {
		t.Errorf("expected five extracted nodes:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "edges[4]{from,to}:") {
		t.Errorf("expected four extracted edges:\n%s", out.String())
	}
}

func TestGenerateBadMode(t *testing.T) {
	t.Parallel()

	var stdout, stderr bytes.Buffer
	if err := run([]string{"generate", "-mode", "star"}, &stdout, &stderr); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestExtractDirectory(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "a.py", sampleProgram)
	writeTestFile(t, dir, "sub/b.py", "def lone(parameter):\n    return parameter\n")
	writeTestFile(t, dir, "mutated/c.py", sampleProgram)
	writeTestFile(t, dir, ".gitignore", "mutated/\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if strings.Count(out, "path: ") != 2 {
		t.Errorf("expected two programs (mutated/ is ignored):\n%s", out)
	}
	if !strings.Contains(out, "nodes[4]{name,kind,line,rank}:") {
		t.Errorf("driver should not be a node:\n%s", out)
	}
	if !strings.Contains(out, "  helper,Worker") || !strings.Contains(out, "  Worker,entry") {
		t.Errorf("missing edges:\n%s", out)
	}
	// helper is called from two nodes and ranks first.
	nodes := out[strings.Index(out, "nodes[4]"):]
	if !strings.HasPrefix(strings.SplitN(nodes, "\n", 3)[1], "  helper,") {
		t.Errorf("helper should rank first:\n%s", nodes)
	}
}

func TestExtractNodeFilter(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := writeTestFile(t, dir, "a.py", sampleProgram)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", "-node", "other", prog}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v", err)
	}
	out := stdout.String()
	if !strings.Contains(out, "nodes[2]") {
		t.Errorf("expected other and its caller:\n%s", out)
	}
	if !strings.Contains(out, "edges[1]{from,to}:\n  other,entry") {
		t.Errorf("unexpected edges:\n%s", out)
	}
}

func TestExtractTop(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := writeTestFile(t, dir, "a.py", sampleProgram)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", "-top", "1", prog}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(stdout.String(), "nodes[1]{name,kind,line,rank}:\n  helper,") {
		t.Errorf("unexpected output:\n%s", stdout.String())
	}
}

func TestExtractDriverFlag(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := writeTestFile(t, dir, "a.py", sampleProgram)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", "-driver", "", prog}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(stdout.String(), "nodes[5]") {
		t.Errorf("main should be a node when the driver rule is off:\n%s", stdout.String())
	}
}

func TestExtractUnparseableSkipped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "good.py", sampleProgram)
	writeTestFile(t, dir, "bad.py", "def broken(:\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Count(stdout.String(), "path: ") != 1 {
		t.Errorf("expected only the good program:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "failed to parse program") {
		t.Errorf("expected a warning:\n%s", stderr.String())
	}
}

func TestExtractKeepsInputOrder(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	var files []string
	for i := range 12 {
		name := fmt.Sprintf("p%02d.py", i)
		src := fmt.Sprintf("def f%02d(parameter):\n    return parameter\n", i)
		if i == 5 {
			src = "def indent_lost(parameter):\nreturn parameter\n"
		} else {
			files = append(files, name)
		}
		writeTestFile(t, dir, name, src)
	}

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", "-log-level", "error", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v\nstderr: %s", err, stderr.String())
	}
	var got []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if p, ok := strings.CutPrefix(line, "path: "); ok {
			got = append(got, filepath.Base(p))
		}
	}
	if strings.Join(got, " ") != strings.Join(files, " ") {
		t.Errorf("programs out of order or unparseable one kept:\ngot  %v\nwant %v", got, files)
	}
}

func TestExtractNoPrograms(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "readme.txt", "nothing")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", dir}, &stdout, &stderr); err == nil {
		t.Fatal("expected an error")
	}
}

func TestExtractMaxFileSize(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "small.py", "def f(parameter):\n    return parameter\n")
	writeTestFile(t, dir, "big.py", sampleProgram)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"extract", "-max-file-size", "60", dir}, &stdout, &stderr); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if strings.Contains(stdout.String(), "big.py") {
		t.Errorf("big.py should be skipped:\n%s", stdout.String())
	}
	if !strings.Contains(stderr.String(), "skipped oversized program") {
		t.Errorf("expected a warning:\n%s", stderr.String())
	}
}

func TestExtractCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "a.py", sampleProgram)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	if err := run([]string{"extract", "-cache", cachePath, dir}, &stdout1, &stderr1); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := os.Stat(cachePath); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	var stdout2, stderr2 bytes.Buffer
	if err := run([]string{"extract", "-cache", cachePath, dir}, &stdout2, &stderr2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stdout1.String() != stdout2.String() {
		t.Errorf("cache mismatch:\nfirst:\n%s\nsecond:\n%s", stdout1.String(), stdout2.String())
	}

	// Filtered runs neither read nor write the cache.
	var stdout3, stderr3 bytes.Buffer
	if err := run([]string{"extract", "-cache", cachePath, "-top", "1", dir}, &stdout3, &stderr3); err != nil {
		t.Fatalf("filtered run: %v", err)
	}
	if stdout3.String() == stdout1.String() {
		t.Error("filtered output should not come from the cache")
	}
}

func TestExtractCacheKeyedBySettings(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeTestFile(t, dir, "a.py", sampleProgram)
	cachePath := filepath.Join(t.TempDir(), "test.cache")

	var stdout1, stderr1 bytes.Buffer
	if err := run([]string{"extract", "-cache", cachePath, dir}, &stdout1, &stderr1); err != nil {
		t.Fatalf("first run: %v", err)
	}

	// With the driver disabled main is a node, so the cached graph is stale.
	var stdout2, stderr2 bytes.Buffer
	if err := run([]string{"extract", "-cache", cachePath, "-driver", "", dir}, &stdout2, &stderr2); err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !strings.Contains(stdout2.String(), "nodes[5]{") {
		t.Errorf("cache written under another driver was reused:\n%s", stdout2.String())
	}
	if strings.Contains(stdout2.String(), "# graphoracle") {
		t.Errorf("cache stamp leaked into output:\n%s", stdout2.String())
	}
}

func TestMutateCheck(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := writeTestFile(t, dir, "a.py", sampleProgram)
	outPath := filepath.Join(dir, "mutated.py")

	var stdout, stderr bytes.Buffer
	err := run([]string{"mutate", "-k", "2", "-seed", "4", "-o", outPath, "-check", prog}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("mutate: %v\nstderr: %s", err, stderr.String())
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == sampleProgram {
		t.Error("two bare calls should have been retargeted")
	}
	if strings.Count(string(data), "run(") != strings.Count(sampleProgram, "run(") {
		t.Error("entry-method calls must not change")
	}
	if !strings.Contains(stdout.String(), "nodes[4]{name,kind,line,rank}:") {
		t.Errorf("expected the re-extracted graph:\n%s", stdout.String())
	}
	if strings.Count(stderr.String(), "retargeted call") != 2 {
		t.Errorf("expected two rewrite logs:\n%s", stderr.String())
	}
}

func TestMutateZeroIsIdentity(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := writeTestFile(t, dir, "a.py", sampleProgram)

	var stdout, stderr bytes.Buffer
	if err := run([]string{"mutate", "-k", "0", prog}, &stdout, &stderr); err != nil {
		t.Fatalf("mutate: %v", err)
	}
	if stdout.String() != sampleProgram {
		t.Errorf("k=0 should return the input unchanged:\n%s", stdout.String())
	}
}

func TestMutateErrors(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	prog := writeTestFile(t, dir, "a.py", sampleProgram)
	bad := writeTestFile(t, dir, "bad.py", "def broken(:\n")

	cases := [][]string{
		{"mutate"},
		{"mutate", "-k", "-1", prog},
		{"mutate", bad},
		{"mutate", filepath.Join(dir, "absent.py")},
	}
	for _, args := range cases {
		var stdout, stderr bytes.Buffer
		if err := run(args, &stdout, &stderr); err == nil {
			t.Errorf("%v: expected an error", args)
		}
	}
}

func TestRounds(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeTestFile(t, dir, "rounds.yaml", `seed: 3
workers: 2
grid:
  modes: [chain, random]
  nodes: [4]
  avg_lengths: [3]
  changes: [1]
`)
	jsonlPath := filepath.Join(dir, "rounds.jsonl")

	var stdout, stderr bytes.Buffer
	err := run([]string{"rounds", "-config", cfgPath, "-jsonl", jsonlPath, "-log-level", "warn"}, &stdout, &stderr)
	if err != nil {
		t.Fatalf("rounds: %v\nstderr: %s", err, stderr.String())
	}

	out := stdout.String()
	if !strings.HasPrefix(out, "rounds[2]{") {
		t.Errorf("unexpected table:\n%s", out)
	}
	if strings.Count(out, `,"true",`) != 2 {
		t.Errorf("every round should round-trip:\n%s", out)
	}

	f, err := os.Open(jsonlPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	lines := 0
	for sc := bufio.NewScanner(f); sc.Scan(); {
		lines++
	}
	if lines != 2 {
		t.Errorf("expected 2 JSON lines, got %d", lines)
	}
}

func TestRoundsSeedZeroOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	const grid = `workers: 1
grid:
  modes: [random]
  nodes: [6]
  avg_lengths: [3]
  changes: [2]
`
	seeded := writeTestFile(t, dir, "seeded.yaml", "seed: 3\n"+grid)
	zero := writeTestFile(t, dir, "zero.yaml", "seed: 0\n"+grid)

	rounds := func(args ...string) string {
		t.Helper()
		var stdout, stderr bytes.Buffer
		if err := run(append([]string{"rounds", "-log-level", "warn"}, args...), &stdout, &stderr); err != nil {
			t.Fatalf("rounds %v: %v\nstderr: %s", args, err, stderr.String())
		}
		return stdout.String()
	}

	want := rounds("-config", zero)
	if got := rounds("-config", seeded, "-seed", "0"); got != want {
		t.Errorf("-seed 0 should select seed 0:\ngot:\n%s\nwant:\n%s", got, want)
	}
	if got := rounds("-config", seeded); got == want {
		t.Error("without -seed the configured seed should be kept")
	}
}

func TestRoundsBadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfgPath := writeTestFile(t, dir, "rounds.yaml", "workers: 0\n")

	var stdout, stderr bytes.Buffer
	if err := run([]string{"rounds", "-config", cfgPath}, &stdout, &stderr); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestReorderArgs(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.Int("n", 0, "")
	fs.String("node", "", "")
	fs.Bool("check", false, "")

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"flags first", []string{"-n", "5", "."}, []string{"-n", "5", "."}},
		{"positional first", []string{".", "-n", "5"}, []string{"-n", "5", "."}},
		{"mixed", []string{"-node", "foo", ".", "-n", "5"}, []string{"-node", "foo", "-n", "5", "."}},
		{"bool flag", []string{"-check", "a.py"}, []string{"-check", "a.py"}},
		{"equals form", []string{"a.py", "--n=3"}, []string{"--n=3", "a.py"}},
		{"double dash", []string{"-n", "1", "--", "-odd.py"}, []string{"-n", "1", "--", "-odd.py"}},
		{"positional before double dash", []string{"a.py", "--", "-b.py"}, []string{"--", "a.py", "-b.py"}},
		{"no flags", []string{"."}, []string{"."}},
		{"no args", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := reorderArgs(fs, tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("index %d: got %q, want %q (full: %v)", i, got[i], tt.want[i], got)
					break
				}
			}
		})
	}
}
