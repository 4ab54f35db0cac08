package mutate

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phobologic/graphoracle/internal/extract"
	"github.com/phobologic/graphoracle/internal/lang"
)

const threeFuncs = `def foo(parameter):
    return parameter

def bar(parameter):
    foo(parameter)
    return parameter

def baz(parameter):
    bar(parameter)
    foo(parameter)
    return parameter

class K:
    def run(self, parameter):
        foo(parameter)
        return parameter

def main():
    results = {}
    results[0] = baz(1)

if __name__ == "__main__":
    main()
`

func TestMutateSingleChange(t *testing.T) {
	t.Parallel()

	res, err := Mutate(`def foo(): pass
def bar(): foo()
`, 1, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Contains(t, res.Source, "def bar(): bar()")
	require.Len(t, res.Rewrites, 1)
	assert.Equal(t, Rewrite{Line: 2, From: "foo", To: "bar"}, res.Rewrites[0])
}

func TestMutateZeroChangesIsIdentity(t *testing.T) {
	t.Parallel()

	res, err := Mutate(threeFuncs, 0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, threeFuncs, res.Source)
	assert.Zero(t, res.Applied)
	assert.Empty(t, res.Rewrites)
}

func TestMutateNoCandidates(t *testing.T) {
	t.Parallel()

	sources := []string{
		"",
		"x = 1\n",
		"def only(parameter):\n    only(parameter)\n",
		"def main():\n    pass\n\ndef only(p):\n    return only(p)\n",
		"def run(p):\n    return p\n\ndef only(p):\n    return run(p)\n",
	}
	for _, src := range sources {
		for _, k := range []int{1, 5} {
			res, err := Mutate(src, k, rand.New(rand.NewSource(2)))
			require.NoError(t, err)
			assert.Equal(t, src, res.Source)
			assert.Zero(t, res.Applied)
		}
	}
}

func TestMutateBoundedByK(t *testing.T) {
	t.Parallel()

	// Five bare-name calls target pool members (foo, bar, foo, foo, baz).
	for k := 0; k <= 8; k++ {
		res, err := Mutate(threeFuncs, k, rand.New(rand.NewSource(int64(k))))
		require.NoError(t, err)
		assert.LessOrEqual(t, res.Applied, k)
		assert.Equal(t, min(k, 5), res.Applied)
		assert.Len(t, res.Rewrites, res.Applied)
		for _, rw := range res.Rewrites {
			assert.NotEqual(t, rw.From, rw.To)
		}
	}
}

func TestMutateNeverIntroducesBareEntryCall(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 40; seed++ {
		res, err := Mutate(threeFuncs, 10, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		assert.Equal(t, strings.Count(threeFuncs, "run("), strings.Count(res.Source, "run("), "seed %d", seed)
		for _, rw := range res.Rewrites {
			assert.NotEqual(t, lang.EntryMethod, rw.To)
			assert.NotEqual(t, lang.DriverName, rw.To)
		}
	}
}

func TestMutateOnlyTouchesIdentifiers(t *testing.T) {
	t.Parallel()

	res, err := Mutate(threeFuncs, 5, rand.New(rand.NewSource(9)))
	require.NoError(t, err)

	gotLines := strings.Split(res.Source, "\n")
	wantLines := strings.Split(threeFuncs, "\n")
	require.Len(t, gotLines, len(wantLines))

	changed := 0
	for i := range wantLines {
		if gotLines[i] != wantLines[i] {
			changed++
		}
	}
	assert.Equal(t, 5, changed)
}

func TestMutateDeterministicForSeed(t *testing.T) {
	t.Parallel()

	a, err := Mutate(threeFuncs, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	b, err := Mutate(threeFuncs, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestMutateErrors(t *testing.T) {
	t.Parallel()

	_, err := Mutate(threeFuncs, -1, rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, ErrNegativeChanges)

	for _, src := range []string{
		"def broken(:\n",
		"def a(p):\n    return p\n\ndef b(p):\na(p)\n",
		"def a(p):\n    return p\n\ndef b(p):\n    exec 'a(p)'\n",
	} {
		_, err = Mutate(src, 1, rand.New(rand.NewSource(1)))
		assert.ErrorIs(t, err, lang.ErrUnparseable, "source %q", src)
	}
}

func TestMutateNilRand(t *testing.T) {
	t.Parallel()

	_, err := Mutate(threeFuncs, 1, nil)
	assert.ErrorIs(t, err, ErrNeedRand)

	// Nothing to rewrite, so no random source is consulted.
	res, err := Mutate(threeFuncs, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, threeFuncs, res.Source)
}

func TestAndExtract(t *testing.T) {
	t.Parallel()

	m := New(rand.New(rand.NewSource(3)))
	res, g, err := AndExtract(context.Background(), m, extract.New(), []byte(threeFuncs), 2)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Applied)
	assert.Equal(t, []string{"foo", "bar", "baz", "K"}, g.Names())
}
