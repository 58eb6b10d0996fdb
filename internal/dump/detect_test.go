package dump

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		line string
		want Kind
	}{
		{`"export-plots data (NetLogo 6.2.0)"`, KindPlots},
		{`"export-world data (NetLogo 6.2.0)"`, KindWorld},
		{`"BehaviorSpace results (NetLogo 6.2.0)"`, KindExperiment},
		{"export-world data (NetLogo 5.3.1)\r\n", KindWorld},
	}

	for _, tt := range tests {
		t.Run(tt.want.String(), func(t *testing.T) {
			got, err := Detect(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDetect_Unrecognized(t *testing.T) {
	_, err := Detect("who,color,heading")
	var ufe *UnrecognizedFormatError
	require.True(t, errors.As(err, &ufe))
	assert.Equal(t, "who,color,heading", ufe.FirstLine)
}

func TestParse_Routes(t *testing.T) {
	tests := []struct {
		fixture string
		target  Target
		kind    Kind
		first   string
	}{
		{"plots.csv", TargetDefault, KindPlots, "step"},
		{"world.csv", TargetDefault, KindWorld, "step"},
		{"world.csv", TargetTurtles, KindWorld, "who"},
		{"experiment-table.csv", TargetDefault, KindExperiment, "run"},
		{"experiment-spreadsheet.csv", TargetExperiment, KindExperiment, "density"},
	}

	for _, tt := range tests {
		t.Run(tt.fixture+"/"+string(tt.target), func(t *testing.T) {
			got, kind, err := Parse(openFixture(t, tt.fixture), Options{Name: tt.fixture, Target: tt.target})
			require.NoError(t, err)
			assert.Equal(t, tt.kind, kind)
			assert.Equal(t, tt.first, got.Headers[0])
		})
	}
}

func TestParse_Errors(t *testing.T) {
	_, kind, err := Parse(strings.NewReader("a,b\n1,2\n"), Options{Name: "x.csv"})
	assert.Equal(t, KindUnknown, kind)
	var ufe *UnrecognizedFormatError
	assert.True(t, errors.As(err, &ufe))
	assert.Contains(t, err.Error(), "x.csv:1:")

	_, kind, err = Parse(strings.NewReader(""), Options{})
	assert.Equal(t, KindUnknown, kind)
	assert.True(t, errors.As(err, &ufe))

	_, kind, err = Parse(openFixture(t, "experiment-table.csv"), Options{Target: TargetPatches})
	assert.Equal(t, KindExperiment, kind)
	var tme *TargetMismatchError
	assert.True(t, errors.As(err, &tme))
}

func TestParseTarget(t *testing.T) {
	got, err := ParseTarget(" Turtles ")
	require.NoError(t, err)
	assert.Equal(t, TargetTurtles, got)

	got, err = ParseTarget("")
	require.NoError(t, err)
	assert.Equal(t, TargetDefault, got)

	_, err = ParseTarget("agents")
	assert.Error(t, err)
}
