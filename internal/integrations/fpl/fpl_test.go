package fpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const guidelinesXML = `<?xml version="1.0" encoding="utf-8"?>
<PovertyGuidelines year="2025">
  <Guideline size="1">15,650</Guideline>
  <Guideline size="2">21,150</Guideline>
  <Guideline size="3">26,650</Guideline>
  <Guideline size="4">$32,150</Guideline>
  <AdditionalPerson>5500</AdditionalPerson>
</PovertyGuidelines>`

func TestParseGuidelines(t *testing.T) {
	table, year, err := ParseGuidelines([]byte(guidelinesXML))
	require.NoError(t, err)

	assert.Equal(t, 2025, year)
	assert.Equal(t, 4, table.Len())
	assert.Equal(t, 15650.0, table.Lookup(1))
	assert.Equal(t, 32150.0, table.Lookup(4))
	assert.Equal(t, 32150.0+2*5500, table.Lookup(6))
}

func TestParseGuidelinesErrors(t *testing.T) {
	tests := map[string]string{
		"not xml":      `<<<`,
		"wrong root":   `<Other/>`,
		"empty":        `<PovertyGuidelines year="2025"><AdditionalPerson>1</AdditionalPerson></PovertyGuidelines>`,
		"gap":          `<PovertyGuidelines><Guideline size="1">1</Guideline><Guideline size="3">3</Guideline><AdditionalPerson>1</AdditionalPerson></PovertyGuidelines>`,
		"bad size":     `<PovertyGuidelines><Guideline size="x">1</Guideline><AdditionalPerson>1</AdditionalPerson></PovertyGuidelines>`,
		"bad amount":   `<PovertyGuidelines><Guideline size="1">abc</Guideline><AdditionalPerson>1</AdditionalPerson></PovertyGuidelines>`,
		"no increment": `<PovertyGuidelines><Guideline size="1">100</Guideline></PovertyGuidelines>`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := ParseGuidelines([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestGetPovertyTable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(guidelinesXML))
	}))
	defer srv.Close()

	logger, hook := test.NewNullLogger()
	table, err := NewClient(srv.URL, logger).GetPovertyTable(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 21150.0, table.Lookup(2))
	assert.Contains(t, hook.LastEntry().Message, "for 2025")
}

func TestGetPovertyTableStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	logger, _ := test.NewNullLogger()
	_, err := NewClient(srv.URL, logger).GetPovertyTable(context.Background())
	assert.ErrorContains(t, err, "503")
}
