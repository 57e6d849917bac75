package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "expediente/pkg/domain-errors"
)

func TestParseDocumentKind(t *testing.T) {
	tests := []struct {
		in   string
		want DocumentKind
	}{
		{"invoice", KindInvoice},
		{" Reinvoice ", KindReinvoice},
		{"ENDORSEMENT", KindEndorsement},
		{"vehicle_certificate", KindCertificate},
		{"vehicle_cancellation", KindCancellation},
		{"verification", KindVerification},
		{"passport", KindUnrecognized},
		{"", KindUnrecognized},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseDocumentKind(tt.in))
		})
	}
	assert.True(t, KindEndorsement.IsTransfer())
	assert.False(t, KindCertificate.IsTransfer())
}

func TestIdentifiers(t *testing.T) {
	assert.Equal(t, "PEÑA800101AB1", NormalizeRFC(" peña-800101-ab1 "))
	assert.Equal(t, "A&B010101AB1", NormalizeRFC("a&b 010101 ab1"))
	assert.True(t, ValidRFC("PEÑA800101AB1"))
	assert.True(t, ValidRFC("ABC010101AB1"))
	assert.False(t, ValidRFC("AB010101AB1"))
	assert.False(t, ValidRFC("ABCD0101AB1"))

	assert.Equal(t, "3G1SF21X56S123456", NormalizeVIN("3g1-sf21x 56s123456"))
	assert.True(t, ValidVIN("3G1SF21X56S123456"))
	assert.False(t, ValidVIN("3G1SF21X56S12345O"))
	assert.False(t, ValidVIN("SHORT"))
}

func TestVehicleDescriptor(t *testing.T) {
	var nilVehicle *Vehicle
	assert.Equal(t, "", nilVehicle.Descriptor())
	assert.Equal(t, "", (&Vehicle{}).Descriptor())
	assert.Equal(t, "NISSAN||2019", (&Vehicle{Brand: Ptr("NISSAN"), Year: Ptr(2019)}).Descriptor())
}

func TestChainHelpers(t *testing.T) {
	one, two := 1, 2
	chain := []OwnershipLink{
		{Position: &one, State: LinkOK, Origin: true, Document: NormalizedDocument{ID: "o", EmisorRFC: Ptr("AG"), ReceptorRFC: Ptr("A")}},
		{Position: &two, State: LinkOK, Document: NormalizedDocument{ID: "1", EmisorRFC: Ptr("A"), ReceptorRFC: Ptr("B")}},
		{State: LinkBreak, Document: NormalizedDocument{ID: "x", EmisorRFC: Ptr("X"), ReceptorRFC: Ptr("Y")}},
	}
	assert.Len(t, PlacedLinks(chain), 2)
	assert.Equal(t, "B", CurrentHolder(chain))
	assert.Equal(t, map[string]bool{"AG": true, "A": true, "B": true}, ChainRFCs(chain))
	assert.Equal(t, "", CurrentHolder(nil))
}

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityCritical.Rank(), SeverityHigh.Rank())
	assert.Greater(t, SeverityHigh.Rank(), SeverityMedium.Rank())
	assert.Greater(t, SeverityMedium.Rank(), SeverityLow.Rank())
	assert.Equal(t, 0, Severity("other").Rank())
}

func TestRunPass(t *testing.T) {
	t.Run("value", func(t *testing.T) {
		res := RunPass("ok", func() (int, error) { return 7, nil })
		require.True(t, res.Available())
		assert.Equal(t, 7, *res.Get())
		assert.Equal(t, "ok", res.Pass)
	})

	t.Run("error", func(t *testing.T) {
		cause := errors.New("boom")
		res := RunPass("failing", func() (int, error) { return 0, cause })
		assert.False(t, res.Available())
		assert.Nil(t, res.Get())
		assert.True(t, errors.Is(res.Err, cause))
		assert.True(t, dErrors.HasCode(res.Err, dErrors.CodeInternal))
	})

	t.Run("panic", func(t *testing.T) {
		res := RunPass("panicking", func() ([]string, error) {
			var m map[string][]string
			m["x"] = nil
			return nil, nil
		})
		assert.False(t, res.Available())
		assert.Contains(t, res.Err.Error(), "panicking")
	})
}
