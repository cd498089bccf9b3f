package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/productjump/ship-cli/internal/quote"
)

func TestParcelFromFlags(t *testing.T) {
	quoteLength, quoteWidth, quoteHeight = 12.4, 9.4, 0.5
	quoteWeightOz = 16
	quotePredefinedPkg = "FlatRateEnvelope"
	quoteDescription = "E-fabric"
	quoteInsuranceValue = 50
	t.Cleanup(func() {
		quoteLength, quoteWidth, quoteHeight, quoteWeightOz, quoteInsuranceValue = 0, 0, 0, 0, 0
		quotePredefinedPkg, quoteDescription = "", ""
	})

	p := parcelFromFlags()
	assert.Equal(t, 12.4, p.Length)
	assert.Equal(t, 16.0, p.WeightOz)
	assert.Equal(t, "FlatRateEnvelope", p.PredefinedPackage)
	assert.Equal(t, "E-fabric", p.Description)
	assert.Equal(t, 50.0, p.InsuranceValue)
}

func TestWriteResult_ToFile(t *testing.T) {
	quoteOutput = filepath.Join(t.TempDir(), "result.json")
	t.Cleanup(func() { quoteOutput = "" })

	result := &quote.Result{
		RequestID: "req-1",
		Outcome:   quote.OutcomeNoBaseline,
		Reason:    "comparison baseline unavailable",
	}
	require.NoError(t, writeResult(result))

	data, err := os.ReadFile(quoteOutput)
	require.NoError(t, err)

	var decoded quote.Result
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "req-1", decoded.RequestID)
	assert.Equal(t, quote.OutcomeNoBaseline, decoded.Outcome)
}
