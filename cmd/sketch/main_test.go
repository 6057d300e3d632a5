package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-sketch/pkg/inference"
	"github.com/dd0wney/cluso-sketch/pkg/network"
	"github.com/dd0wney/cluso-sketch/pkg/results"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestReadFormulae(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "props.txt", "# steady states\n3{x}: @{x}: AX {x}\n\nEF a\n")

	got, err := readFormulae(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "line 2", got[0].Name)
	assert.Equal(t, "line 4", got[1].Name)

	bad := writeFile(t, dir, "bad.txt", "EF a\nAX (\n")
	_, err = readFormulae(bad)
	assert.ErrorContains(t, err, "bad.txt:2")
}

func TestFlagSketch(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "toy.aeon", "a -?? a\na -?? b\n$a: a\n$b: p(a) ^ q()\n")
	data := writeFile(t, dir, "steady.csv", "a | b\nFixedPoint\n11\n")

	s, err := flagSketch(model, "", data, "")
	require.NoError(t, err)
	assert.Equal(t, "toy", s.Name)
	require.Len(t, s.Observations, 1)
	assert.Equal(t, "steady.csv", s.Observations[0].Name)
	assert.Nil(t, s.Goal)

	_, err = flagSketch("", "", "", "")
	assert.Error(t, err)
	_, err = flagSketch(filepath.Join(dir, "missing.aeon"), "", "", "")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	r := &results.Report{
		Sketch:            "toy",
		InitialCandidates: "8",
		FinalCandidates:   "4",
		Steps: []results.StepRecord{
			{Property: "steady", Candidates: "4", Duration: time.Millisecond},
			{Property: "never", Candidates: "4", Skipped: true},
		},
		Classes: []results.ClassRecord{{Class: "2 fixed, 0 oscillating", Candidates: "4"}},
	}
	out := render(r, nil)
	assert.Contains(t, out, "steady")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "2 fixed, 0 oscillating")
	assert.NotContains(t, out, "no constraints applied")

	empty := render(&results.Report{Sketch: "toy", FinalCandidates: "8"}, nil)
	assert.Contains(t, empty, "no constraints applied")
}

func TestRunTracker(t *testing.T) {
	net, err := network.Parse("a -?? a\n#!dynamic_property: reach: EF a\n")
	require.NoError(t, err)
	tr := newRunTracker(&inference.Sketch{Name: "toy", Model: net})

	assert.Equal(t, 1, tr.state().Total)
	tr.step(inference.Step{Name: "reach"})
	tr.finish(nil)
	st := tr.state()
	assert.Equal(t, 1, st.Applied)
	assert.True(t, st.Done)
	assert.NoError(t, st.Err)

	// A sketch without a model still gets a tracker.
	assert.Equal(t, 0, newRunTracker(&inference.Sketch{}).state().Total)
}

func TestRun_ExitStatus(t *testing.T) {
	dir := t.TempDir()
	model := writeFile(t, dir, "toy.aeon", "a -?? a\na -?? b\n$a: a\n$b: p(a) ^ q()\n")
	data := writeFile(t, dir, "steady.csv", "a | b\nFixedPoint\n11\n")
	unbound := writeFile(t, dir, "unbound.txt", "3{x}: @{x}: {y}\n")

	t.Run("bad input", func(t *testing.T) {
		var stdout, stderr bytes.Buffer
		assert.Equal(t, 2, run(nil, &stdout, &stderr))
		assert.Contains(t, stderr.String(), "-model is required")
		assert.Equal(t, 2, run([]string{"-no-such-flag"}, &stdout, &stderr))
	})

	t.Run("success", func(t *testing.T) {
		reports := t.TempDir()
		var stdout, stderr bytes.Buffer
		code := run([]string{"-model", model, "-observations", data, "-report-dir", reports, "-json", "-log-level", "error"}, &stdout, &stderr)
		require.Equal(t, 0, code, stderr.String())

		var r results.Report
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &r))
		assert.Equal(t, "toy", r.Sketch)
		assert.Equal(t, "4", r.FinalCandidates)
		entries, err := os.ReadDir(reports)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	// A failed run still returns through the deferred store cleanup with its report saved.
	t.Run("failed run", func(t *testing.T) {
		reports := t.TempDir()
		var stdout, stderr bytes.Buffer
		code := run([]string{"-model", model, "-formulae", unbound, "-report-dir", reports, "-log-level", "error"}, &stdout, &stderr)
		assert.Equal(t, 1, code)
		assert.Contains(t, stderr.String(), "error:")
		entries, err := os.ReadDir(reports)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})
}
