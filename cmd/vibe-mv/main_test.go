package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-mv/internal/genome"
	"github.com/inodb/vibe-mv/internal/genome/genometest"
	"github.com/inodb/vibe-mv/internal/pileup"
	"github.com/inodb/vibe-mv/internal/variant"
)

// execute runs the command tree with a fresh viper and an empty home.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Setenv("HOME", t.TempDir())

	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func writeGenome(t *testing.T, dir string, layout genome.Layout) {
	t.Helper()
	seq := genometest.Sequence(layout, genometest.StartPatches(layout))
	fasta := ">" + layout.Accession + " synthetic\n" + seq + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, genome.FileName(layout)), []byte(fasta), 0644))
}

func writeRecord(t *testing.T, path string, table pileup.Table) {
	t.Helper()
	p, err := variant.New(context.Background(), variant.FromTable(table))
	require.NoError(t, err)
	require.NoError(t, p.SaveFile(path))
}

// minorTable has one minor variant at position 1 with G at 40%.
func minorTable() pileup.Table {
	return pileup.Table{
		{"A": 100},
		{"A": 60, "G": 40},
		{"T": 100},
		{"C": 0},
	}
}

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    bool
		wantErr bool
	}{
		{"", false, false},
		{"10:20", true, false},
		{"10", false, true},
		{"a:20", false, true},
		{"10:b", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, ok, err := parseWindow(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestParseConfigValue(t *testing.T) {
	assert.Equal(t, true, parseConfigValue("yes"))
	assert.Equal(t, false, parseConfigValue("off"))
	assert.Equal(t, 100, parseConfigValue("100"))
	assert.Equal(t, 0.25, parseConfigValue("0.25"))
	assert.Equal(t, "/data/genomes", parseConfigValue("/data/genomes"))
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "dev")
}

func TestConfigSetGet(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "vibe-mv.yaml")

	out, err := execute(t, "--config", cfg, "config", "set", "stats.min_coverage", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Set stats.min_coverage = 100")

	out, err = execute(t, "--config", cfg, "config", "get", "stats.min_coverage")
	require.NoError(t, err)
	assert.Equal(t, "100\n", out)

	out, err = execute(t, "--config", cfg, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "min_coverage: 100")

	_, err = execute(t, "--config", cfg, "config", "get", "no.such.key")
	assert.Error(t, err)
}

func TestAnnotate_Single(t *testing.T) {
	dir := t.TempDir()
	writeGenome(t, dir, genome.SARS2Layout)

	out, err := execute(t, "--genomes", dir, "annotate", "--virus", "SARS2", "265", "C")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "#Sample\tVirus"))
	assert.Contains(t, lines[1], "ORF1a\tstart_lost\tATG/CTG\tstart/L\t1\tYES\tHIGH")
}

func TestAnnotate_OutputFile(t *testing.T) {
	dir := t.TempDir()
	writeGenome(t, dir, genome.SARS2Layout)
	outPath := filepath.Join(dir, "calls.tsv")

	out, err := execute(t, "--genomes", dir, "annotate", "--virus", "SARS2", "-o", outPath, "265", "C")
	require.NoError(t, err)
	assert.Empty(t, out)
	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ORF1a\tstart_lost\tATG/CTG")

	// A failed classification leaves no output file behind.
	failed := filepath.Join(dir, "failed.tsv")
	_, err = execute(t, "--genomes", dir, "annotate", "--virus", "SARS2", "-o", failed, "265", "N")
	require.Error(t, err)
	assert.NoFileExists(t, failed)

	_, err = execute(t, "--genomes", dir, "annotate", "--virus", "SARS2", "-o", filepath.Join(dir, "missing", "x.tsv"), "265", "C")
	assert.Error(t, err)
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.tsv")
	require.NoError(t, writeReport(path, nil, func(w io.Writer) error {
		_, err := io.WriteString(w, "a\tb\n")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a\tb\n", string(data))

	var buf bytes.Buffer
	boom := errors.New("boom")
	err = writeReport("", &buf, func(w io.Writer) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestAnnotate_Errors(t *testing.T) {
	dir := t.TempDir()
	writeGenome(t, dir, genome.SARS2Layout)

	_, err := execute(t, "--genomes", dir, "annotate", "--virus", "EBOV", "10", "A")
	var unknown *genome.UnknownVirusError
	assert.True(t, errors.As(err, &unknown))

	_, err = execute(t, "--genomes", dir, "annotate", "--virus", "WNV", "10", "A")
	var notLoaded *genome.NotLoadedError
	assert.True(t, errors.As(err, &notLoaded))

	_, err = execute(t, "--genomes", dir, "annotate", "--virus", "SARS2", "10", "N")
	assert.Error(t, err)

	_, err = execute(t, "--genomes", dir, "annotate", "--virus", "SARS2")
	assert.Error(t, err)

	_, err = execute(t, "--genomes", dir, "annotate", "10", "A")
	assert.Error(t, err)
}

func TestAnnotate_Record(t *testing.T) {
	dir := t.TempDir()
	writeGenome(t, dir, genome.SARS2Layout)
	record := filepath.Join(dir, "p1-s1.json")
	writeRecord(t, record, minorTable())

	out, err := execute(t, "--genomes", dir, "annotate", "--virus", "SARS2", "--record", record)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "p1-s1\tSARS2\t1\tG\tA\t0.4\t100\tUTR\tnon_coding_variant\t-\tnon-coding/non-coding\t1\tNO\tMODIFIER", lines[1])
}

func TestPileupCmd(t *testing.T) {
	dir := t.TempDir()
	samText := "@HD\tVN:1.6\tSO:coordinate\n" +
		"@SQ\tSN:ref\tLN:4\n" +
		"r1\t0\tref\t1\t60\t4M\t*\t0\t0\tACGT\tIIII\n"
	samPath := filepath.Join(dir, "p1-s1.sam")
	require.NoError(t, os.WriteFile(samPath, []byte(samText), 0644))

	out, err := execute(t, "pileup", "--sequencingTech", "miseq", samPath)
	require.NoError(t, err)
	assert.Contains(t, out, `"sequencingTech":"MiSeq"`)
	assert.Contains(t, out, `"countsPerBase"`)

	recPath := filepath.Join(dir, "p1-s1.json.zst")
	_, err = execute(t, "pileup", "-o", recPath, samPath)
	require.NoError(t, err)

	p, err := variant.New(context.Background(), variant.FromRecord(recPath))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1, 1, 1}, p.Coverage())

	_, err = execute(t, "pileup", "--sequencingTech", "PacBio", samPath)
	var cfgErr *variant.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
}

func TestStatsCmd(t *testing.T) {
	dir := t.TempDir()
	writeGenome(t, dir, genome.SARS2Layout)
	s1 := filepath.Join(dir, "p1-s1.json")
	s2 := filepath.Join(dir, "p2-s1.json.gz")
	writeRecord(t, s1, minorTable())
	writeRecord(t, s2, pileup.Table{{"A": 20}, {"C": 20}})
	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0644))

	positions := filepath.Join(dir, "positions.tsv")
	calls := filepath.Join(dir, "calls.tsv")
	db := filepath.Join(dir, "stats.duckdb")

	out, err := execute(t, "--genomes", dir, "stats",
		"--min-coverage", "10",
		"--virus", "SARS2",
		"--positions", positions,
		"--calls", calls,
		"--db", db,
		s1, bad, s2)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "p1-s1\t4\t"))
	assert.True(t, strings.HasPrefix(lines[2], "p2-s1\t2\t20\t0\t"))

	posData, err := os.ReadFile(positions)
	require.NoError(t, err)
	assert.Contains(t, string(posData), "p1-s1\t1\t100\t0.6\t0.4\t")
	// Header plus four and two positions.
	assert.Len(t, strings.Split(strings.TrimSpace(string(posData)), "\n"), 7)

	callData, err := os.ReadFile(calls)
	require.NoError(t, err)
	assert.Contains(t, string(callData), "p1-s1\tSARS2\t1\tG\tA\t0.4\t100\tUTR")

	out, err = execute(t, "query", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "p1-s1\t")
	assert.Contains(t, out, "p2-s1\t")

	// The second run is served from the database.
	out, err = execute(t, "stats", "--min-coverage", "10", "--db", db, s1)
	require.NoError(t, err)
	assert.Equal(t, lines[:2], strings.Split(strings.TrimSpace(out), "\n"))
}

func TestStatsCmd_Options(t *testing.T) {
	dir := t.TempDir()
	s1 := filepath.Join(dir, "p1-s1.json")
	writeRecord(t, s1, minorTable())

	_, err := execute(t, "stats", "--calls", filepath.Join(dir, "c.tsv"), s1)
	assert.Error(t, err)

	_, err = execute(t, "stats", "--pi-window", "5:5", s1)
	var cfgErr *variant.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))

	out, err := execute(t, "stats", "--min-mean-coverage", "1000", s1)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(out), "\n"), 1)
}

func TestStatsCmd_DuplicateSamples(t *testing.T) {
	dir := t.TempDir()
	run1 := filepath.Join(dir, "run1", "s1.json")
	run2 := filepath.Join(dir, "run2", "s1.json.gz")
	require.NoError(t, os.MkdirAll(filepath.Dir(run1), 0755))
	require.NoError(t, os.MkdirAll(filepath.Dir(run2), 0755))
	writeRecord(t, run1, minorTable())
	writeRecord(t, run2, pileup.Table{{"A": 20}, {"C": 20}})
	db := filepath.Join(dir, "stats.duckdb")

	out, err := execute(t, "stats", "--db", db, run1, run2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), run1)
	assert.Contains(t, err.Error(), run2)
	assert.Contains(t, err.Error(), `"s1"`)
	assert.Empty(t, out)
	assert.NoFileExists(t, db)

	s2 := filepath.Join(dir, "run2", "s2.json")
	writeRecord(t, s2, pileup.Table{{"A": 20}, {"C": 20}})
	out, err = execute(t, "stats", "--min-coverage", "10", run1, s2)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[1], "s1\t4\t"))
	assert.True(t, strings.HasPrefix(lines[2], "s2\t2\t"))
}

func TestDownloadCmd(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		id := r.URL.Query().Get("id")
		for _, l := range genome.BuiltinLayouts() {
			if l.Accession == id {
				fmt.Fprintf(w, ">%s\n%s\n", id, genometest.Sequence(l, nil))
				return
			}
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dir := filepath.Join(t.TempDir(), "genomes")
	out, err := execute(t, "download", "--url", srv.URL, "--output", dir, "--virus", "WNV")
	require.NoError(t, err)
	assert.Contains(t, out, "Download complete!")
	assert.FileExists(t, filepath.Join(dir, "NC_009942.1.fasta"))

	out, err = execute(t, "download", "--url", srv.URL, "--output", dir, "--virus", "WNV")
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
	assert.Equal(t, int32(1), requests.Load())

	_, err = execute(t, "download", "--url", srv.URL, "--output", dir, "--virus", "EBOV")
	assert.Error(t, err)
}
