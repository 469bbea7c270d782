package variant

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-mv/internal/pileup"
)

func alignedProfile(t *testing.T) *Profile {
	t.Helper()
	prov := &fakeProvider{res: &pileup.Result{Table: sampleTable()}}
	params := RunParameters{MinBaseQuality: 20, MinMappingQuality: 5, SequencingTech: TechNovaSeq}
	p, err := New(context.Background(), FromAlignment("sample.bam", prov, params))
	require.NoError(t, err)
	return p
}

func TestSave_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, alignedProfile(t).Save(&buf))

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	assert.Contains(t, raw, "parameters")
	assert.Contains(t, raw, "countsPerBase")

	var params map[string]any
	require.NoError(t, json.Unmarshal(raw["parameters"], &params))
	assert.Equal(t, "NovaSeq", params["sequencingTech"])
	assert.Equal(t, 20.0, params["minBaseQuality"])
	assert.Equal(t, 5.0, params["minMappingQuality"])

	var counts map[string]map[string]int
	require.NoError(t, json.Unmarshal(raw["countsPerBase"], &counts))
	assert.Len(t, counts, 4)
	assert.Equal(t, 40, counts["1"]["C"])
}

func TestSave_UnsetTechIsNull(t *testing.T) {
	p, err := New(context.Background(), FromTable(pileup.Table{{"A": 1}}))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, p.Save(&buf))
	assert.Contains(t, buf.String(), `"sequencingTech":null`)
}

func TestRecordRoundTrip(t *testing.T) {
	orig := alignedProfile(t)

	for _, name := range []string{"sample.json", "sample.json.gz", "sample.json.zst"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			require.NoError(t, orig.SaveFile(path))

			loaded, err := New(context.Background(), FromRecord(path))
			require.NoError(t, err)

			assert.Equal(t, "sample", loaded.Name())
			assert.Equal(t, orig.Table(), loaded.Table())
			assert.Equal(t, orig.Coverage(), loaded.Coverage())

			params, ok := loaded.Params()
			require.True(t, ok)
			assert.Equal(t, TechNovaSeq, params.SequencingTech)
			assert.Equal(t, 20, params.MinBaseQuality)
			assert.Equal(t, 5, params.MinMappingQuality)

			assert.Equal(t, orig.Summarize(50, 0.3).Richness, loaded.Summarize(50, 0.3).Richness)
		})
	}
}

func TestReadRecord_Legacy(t *testing.T) {
	legacy := `{"0": {"A": 3, "C": 0, "G": 0, "T": 0}, "1": {"A": 1, "G": 2}}`
	table, params, err := ReadRecord(strings.NewReader(legacy))
	require.NoError(t, err)

	require.Len(t, table, 2)
	assert.Equal(t, 3, table[0]["A"])
	assert.Equal(t, 2, table[1]["G"])
	assert.Equal(t, RunParameters{}, params)
}

func TestReadRecord_NullTech(t *testing.T) {
	in := `{"parameters": {"sequencingTech": null, "minBaseQuality": 0, "minMappingQuality": 0},
	        "countsPerBase": {"0": {"A": 1}}}`
	_, params, err := ReadRecord(strings.NewReader(in))
	require.NoError(t, err)
	assert.Equal(t, TechUnset, params.SequencingTech)
}

func TestReadRecord_Errors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"not json", `not json`},
		{"gap in positions", `{"countsPerBase": {"0": {"A": 1}, "2": {"A": 1}}}`},
		{"non-integer key", `{"countsPerBase": {"zero": {"A": 1}}}`},
		{"duplicate position", `{"countsPerBase": {"1": {"A": 1}, "01": {"A": 1}}}`},
		{"negative count", `{"0": {"A": -1}}`},
		{"negative quality", `{"parameters": {"minBaseQuality": -3}, "countsPerBase": {}}`},
		{"unknown tech", `{"parameters": {"sequencingTech": "Sanger"}, "countsPerBase": {}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ReadRecord(strings.NewReader(tt.in))
			require.Error(t, err)
			var recErr *RecordError
			assert.ErrorAs(t, err, &recErr)
		})
	}
}

func TestFromRecord_MissingFile(t *testing.T) {
	_, err := New(context.Background(), FromRecord(filepath.Join(t.TempDir(), "nope.json")))
	assert.Error(t, err)
}
