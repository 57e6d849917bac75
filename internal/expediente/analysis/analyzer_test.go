package analysis

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expediente/internal/expediente/chain"
	"expediente/internal/expediente/coverage"
	"expediente/internal/expediente/models"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/dates"
	"expediente/pkg/testutil"
)

const (
	rfcA = "AAA010101AA1"
	rfcB = "BBB020202BB2"
	rfcC = "CCC030303CC3"
	vin  = "3G1SF21X56S123456"
)

func invoice(id, condition, from, to, date string) models.RawDocument {
	return models.RawDocument{
		DocumentType: "invoice",
		FileID:       id,
		OCR: map[string]any{
			"Nuevo/Usado":     condition,
			"RFC Emisor":      from,
			"RFC Receptor":    to,
			"Nombre Receptor": "Receptor " + to,
			"Fecha Factura":   date,
			"VIN":             vin,
		},
	}
}

func certificate(id, rfc, state, expedition string) models.RawDocument {
	return models.RawDocument{
		DocumentType: "vehicle_certificate",
		FileID:       id,
		OCR: map[string]any{
			"estado":             state,
			"fecha_expedicion":   expedition,
			"rfc_propietario":    rfc,
			"nombre_propietario": "Carlos Cruz",
		},
	}
}

func fixedID() string { return "analysis-1" }

// End-to-end: one NEW invoice A->B and a certificate for C, who never
// appears in the chain.
func TestAnalyzeEndToEnd(t *testing.T) {
	files := []models.RawDocument{
		invoice("factura-1", "NUEVO", rfcA, rfcB, "17/03/2017"),
		certificate("tarjeta-1", rfcC, "Aguascalientes", "30/03/2022"),
	}
	analyzer := NewAnalyzer(WithIDGenerator(fixedID))

	testutil.Given(t, "an invoice A->B and a certificate held by C", func(t *testing.T) {
		testutil.When(t, "analyzed after the certificate year ends", func(t *testing.T) {
			res := analyzer.Analyze(Request{Files: files, AsOf: dates.Date(2023, time.January, 1)})

			testutil.Then(t, "the chain is built from the origin invoice", func(t *testing.T) {
				require.True(t, res.Success)
				require.NotNil(t, res.VIN)
				assert.Equal(t, vin, *res.VIN)
				require.NotNil(t, res.OriginDocument)
				assert.Equal(t, "factura-1", res.OriginDocument.ID)
				require.Len(t, res.OwnershipChain, 1)
				assert.True(t, res.OwnershipChain[0].Origin)
			})

			testutil.Then(t, "the certificate owner is reported as an orphan", func(t *testing.T) {
				require.NotNil(t, res.SequenceAnalysis)
				require.True(t, res.SequenceAnalysis.HasGaps)
				var orphan *models.Gap
				for i, g := range res.SequenceAnalysis.Gaps {
					if g.Kind == models.GapOrphan {
						orphan = &res.SequenceAnalysis.Gaps[i]
					}
				}
				require.NotNil(t, orphan)
				assert.Equal(t, []string{"tarjeta-1"}, orphan.DocumentIDs)
				assert.Equal(t, []string{rfcC}, orphan.RFCs)
			})

			testutil.Then(t, "the current owner has no valid certificate", func(t *testing.T) {
				require.NotNil(t, res.PropertyValidation)
				assert.Equal(t, rfcB, res.PropertyValidation.CurrentOwner)
				assert.True(t, res.PropertyValidation.OwnerWithoutValid)

				require.NotNil(t, res.TarjetasAnalysis)
				assert.Equal(t, 1, res.TarjetasAnalysis.Expired)
				require.NotNil(t, res.CrossValidation)
				assert.False(t, res.CrossValidation.Consistent)
				require.NotNil(t, res.VigenciaAnalysis)
				require.NotNil(t, res.ExecutiveSummary)
				assert.Equal(t, models.SeverityHigh, res.ExecutiveSummary.RiskLevel)
			})

			testutil.Then(t, "metadata describes the run", func(t *testing.T) {
				assert.Equal(t, "analysis-1", res.Metadata.AnalysisID)
				assert.Equal(t, "2023-01-01", res.Metadata.AsOf)
				assert.Equal(t, 2, res.Metadata.TotalFiles)
				assert.Equal(t, 1, res.Metadata.DocumentsByKind[models.KindInvoice])
				assert.Equal(t, 1, res.Metadata.DocumentsByKind[models.KindCertificate])
				assert.Equal(t, chain.AllowPingPong, res.Metadata.ReturnPolicy)
				assert.Empty(t, res.Metadata.Unavailable)
			})
		})

		testutil.When(t, "analyzed on the last day of the certificate year", func(t *testing.T) {
			res := analyzer.Analyze(Request{Files: files, AsOf: dates.Date(2022, time.December, 31)})

			testutil.Then(t, "the certificate is still valid", func(t *testing.T) {
				require.NotNil(t, res.TarjetasAnalysis)
				assert.Equal(t, 1, res.TarjetasAnalysis.Valid)
				assert.Equal(t, coverage.StatusValid, res.TarjetasAnalysis.Certificates[0].Status)
			})
		})
	})
}

// AnalyzerSuite covers the structural preconditions and optional sections.
//
// Justification: these are the only paths where Success=false, and the
// omission rules decide which keys callers can rely on.
type AnalyzerSuite struct {
	suite.Suite
	analyzer *Analyzer
	asOf     time.Time
}

func TestAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(AnalyzerSuite))
}

func (s *AnalyzerSuite) SetupTest() {
	s.analyzer = NewAnalyzer(WithIDGenerator(fixedID))
	s.asOf = dates.Date(2023, time.January, 1)
}

// =============================================================================
// Structural failures
// =============================================================================

func (s *AnalyzerSuite) TestStructuralFailures() {
	s.Run("no files", func() {
		res := s.analyzer.Analyze(Request{AsOf: s.asOf})
		s.False(res.Success)
		s.True(dErrors.HasCode(res.Err, dErrors.CodeBadRequest))
		s.NotEmpty(res.Error)
		s.NotNil(res.OwnershipChain)
	})

	s.Run("no transfer documents", func() {
		res := s.analyzer.Analyze(Request{AsOf: s.asOf, Files: []models.RawDocument{
			certificate("t", rfcC, "Aguascalientes", "30/03/2022"),
		}})
		s.False(res.Success)
		s.True(dErrors.HasCode(res.Err, dErrors.CodeValidation))
		s.Contains(res.Error, "no transfer documents")
	})

	s.Run("no origin invoice", func() {
		res := s.analyzer.Analyze(Request{AsOf: s.asOf, Files: []models.RawDocument{
			invoice("f", "USADO", rfcA, rfcB, "17/03/2017"),
		}})
		s.False(res.Success)
		s.Contains(res.Error, "no origin document")
		s.Equal(0, res.Metadata.OriginCandidates)
	})

	s.Run("VIN mismatch across transfers", func() {
		other := invoice("f2", "USADO", rfcB, rfcC, "01/02/2018")
		other.OCR["VIN"] = "1HGCM82633A004352"
		res := s.analyzer.Analyze(Request{AsOf: s.asOf, Files: []models.RawDocument{
			invoice("f1", "NUEVO", rfcA, rfcB, "17/03/2017"), other,
		}})
		s.False(res.Success)
		s.True(dErrors.HasCode(res.Err, dErrors.CodeValidation))
		s.Contains(res.Error, "VIN mismatch")
		s.Contains(res.Error, "f2")
	})
}

// =============================================================================
// Optional sections
// =============================================================================

func (s *AnalyzerSuite) TestWithoutCertificatesOmitsCoverage() {
	res := s.analyzer.Analyze(Request{AsOf: s.asOf, Files: []models.RawDocument{
		invoice("f1", "NUEVO", rfcA, rfcB, "17/03/2017"),
		invoice("f2", "USADO", rfcB, rfcC, "01/02/2018"),
		{DocumentType: "passport", FileID: "p"},
	}})
	s.Require().True(res.Success)
	s.Len(res.OwnershipChain, 2)
	s.Nil(res.TarjetasAnalysis)
	s.Nil(res.CrossValidation)
	s.Nil(res.PropertyValidation)
	s.Nil(res.VigenciaAnalysis)
	s.NotNil(res.ExecutiveSummary)
	s.Empty(res.Metadata.Unavailable)
	s.Equal(1, res.Metadata.Skipped)

	raw, err := json.Marshal(res)
	s.Require().NoError(err)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(raw, &body))
	s.Contains(body, "sequenceAnalysis")
	s.Contains(body, "executiveSummary")
	s.NotContains(body, "tarjetasAnalysis")
	s.NotContains(body, "error")
}

func (s *AnalyzerSuite) TestReturnPolicyPerRequest() {
	files := []models.RawDocument{
		invoice("o", "NUEVO", "AGE010101AB1", rfcA, "01/01/2018"),
		invoice("1", "USADO", rfcA, rfcB, "01/02/2018"),
		invoice("2", "USADO", rfcB, rfcA, "01/03/2018"),
		invoice("3", "USADO", rfcA, rfcC, "01/04/2018"),
		invoice("4", "USADO", rfcA, rfcB, "01/05/2018"),
	}

	allowed := s.analyzer.Analyze(Request{AsOf: s.asOf, Files: files})
	s.Equal(chain.AllowPingPong, allowed.Metadata.ReturnPolicy)
	s.Len(models.PlacedLinks(allowed.OwnershipChain), 5)

	rejected := s.analyzer.Analyze(Request{AsOf: s.asOf, Files: files, ReturnPolicy: chain.RejectPingPong})
	s.Equal(chain.RejectPingPong, rejected.Metadata.ReturnPolicy)
	s.Len(models.PlacedLinks(rejected.OwnershipChain), 4)
	s.Require().Len(rejected.OwnershipChain, 5)
	s.Equal(models.LinkBreak, rejected.OwnershipChain[4].State)
}

func TestCommonVIN(t *testing.T) {
	v, err := commonVIN([]models.NormalizedDocument{{ID: "a"}, {ID: "b", VIN: models.Ptr(vin)}})
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, vin, *v)

	v, err = commonVIN([]models.NormalizedDocument{{ID: "a"}})
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestAnalyzeRepeatedFileIDs(t *testing.T) {
	files := []models.RawDocument{
		invoice("f1", "NUEVO", rfcA, rfcB, "17/03/2017"),
		invoice("f1", "USADO", rfcC, rfcA, "01/01/2016"),
	}

	testutil.Given(t, "two invoices uploaded under the same file id", func(t *testing.T) {
		res := NewAnalyzer().Analyze(Request{Files: files, AsOf: dates.Date(2024, time.January, 1)})

		testutil.Then(t, "both appear in the chain under distinct ids", func(t *testing.T) {
			require.True(t, res.Success)
			require.Len(t, res.OwnershipChain, 2)
			assert.True(t, res.OwnershipChain[0].Origin)
			assert.Equal(t, rfcB, res.OwnershipChain[0].Document.Receptor())
			assert.Equal(t, models.LinkBreak, res.OwnershipChain[1].State)
			assert.Equal(t, rfcC, res.OwnershipChain[1].Document.Emisor())
			assert.NotEqual(t, res.OwnershipChain[0].Document.ID, res.OwnershipChain[1].Document.ID)
		})
	})
}

func TestAnalyzePrintedExpirationOnUndecidableState(t *testing.T) {
	card := certificate("tarjeta-1", rfcB, "Tabasco", "17/03/2017")
	card.OCR["fecha_vencimiento"] = "31/12/2017"
	files := []models.RawDocument{invoice("factura-1", "NUEVO", rfcA, rfcB, "17/03/2017"), card}

	testutil.Given(t, "a Tabasco card for the current owner with a lapsed printed expiration", func(t *testing.T) {
		res := NewAnalyzer().Analyze(Request{Files: files, AsOf: dates.Date(2024, time.January, 1)})

		testutil.Then(t, "the card is expired and the owner is uncovered", func(t *testing.T) {
			require.NotNil(t, res.TarjetasAnalysis)
			require.Len(t, res.TarjetasAnalysis.Certificates, 1)
			assert.Equal(t, coverage.StatusExpired, res.TarjetasAnalysis.Certificates[0].Status)

			var codes []string
			for _, g := range res.TarjetasAnalysis.Gaps {
				codes = append(codes, g.Code)
			}
			assert.Contains(t, codes, models.CodeOwnerWithoutCertificate)

			require.NotNil(t, res.PropertyValidation)
			assert.True(t, res.PropertyValidation.OwnerWithoutValid)
		})
	})
}
