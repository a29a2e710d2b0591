package batch

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"plaid.dev/conllu/conllu"
	"plaid.dev/conllu/pipeline"
)

const theDog = "1\tThe\tthe\tDET\t_\t_\t2\tdet\t_\t_\n" +
	"2\tdog\tdog\tNOUN\t_\t_\t0\troot\t_\t_\n"

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestRunRoundTrip(t *testing.T) {
	in := t.TempDir()
	imported := t.TempDir()
	exported := t.TempDir()
	writeFile(t, in, "a.conllu", theDog)
	writeFile(t, in, "b.conllu", "# sent_id = b\n"+theDog)
	ppln := pipeline.New(nil)

	count, err := Run(ppln, Options{
		Direction: pipeline.Import,
		In:        filepath.Join(in, "*.conllu"),
		OutDir:    imported,
		Quiet:     true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)
	require.FileExists(t, filepath.Join(imported, "a.json"))
	require.FileExists(t, filepath.Join(imported, "b.json"))

	count, err = Run(ppln, Options{
		Direction: pipeline.Export,
		In:        filepath.Join(imported, "*.json"),
		OutDir:    exported,
		Quiet:     true,
	})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	out, err := os.ReadFile(filepath.Join(exported, "b.conllu"))
	require.NoError(t, err)
	require.Equal(t, "# sent_id = b\n"+theDog+"\n", string(out))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, in, "1-good.conllu", theDog)
	writeFile(t, in, "2-bad.conllu", "1\tThe\n")
	writeFile(t, in, "3-good.conllu", theDog)

	count, err := Run(pipeline.New(nil), Options{
		Direction: pipeline.Import,
		In:        filepath.Join(in, "*.conllu"),
		OutDir:    out,
		Quiet:     true,
	})
	require.Equal(t, 1, count)
	require.True(t, errors.Is(err, conllu.ErrFormat), err)
	require.Contains(t, err.Error(), "2-bad.conllu")
	require.NoFileExists(t, filepath.Join(out, "3-good.json"))
}

func TestRunNoInput(t *testing.T) {
	_, err := Run(pipeline.New(nil), Options{
		Direction: pipeline.Import,
		In:        filepath.Join(t.TempDir(), "*.conllu"),
		OutDir:    t.TempDir(),
		Quiet:     true,
	})
	require.True(t, errors.Is(err, ErrNoInput))
}

func TestOutputPath(t *testing.T) {
	require.Equal(t, filepath.Join("out", "doc.conllu"), OutputPath("out", "/data/doc.json", pipeline.Export))
	require.Equal(t, filepath.Join("out", "doc.json"), OutputPath("out", "doc.conllu", pipeline.Import))
}
