package chain

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"expediente/internal/expediente/models"
	dErrors "expediente/pkg/domain-errors"
	"expediente/pkg/platform/dates"
)

var base = dates.Date(2015, time.January, 1)

func transfer(id string, kind models.DocumentKind, from, to string, day int) models.NormalizedDocument {
	d := base.AddDate(0, 0, day)
	doc := models.NormalizedDocument{
		ID:          id,
		Kind:        kind,
		Date:        &d,
		EmisorRFC:   models.Ptr(from),
		ReceptorRFC: models.Ptr(to),
		Condition:   models.Ptr(models.ConditionUsed),
	}
	return doc
}

func originDoc(from, to string) models.NormalizedDocument {
	doc := transfer("origin", models.KindInvoice, from, to, 0)
	doc.Condition = models.Ptr(models.ConditionNew)
	return doc
}

func states(links []models.OwnershipLink) []models.LinkState {
	out := make([]models.LinkState, len(links))
	for i, l := range links {
		out[i] = l.State
	}
	return out
}

// BuilderSuite covers link classification.
//
// Justification: classification order is the one rule whose reversal turns
// legitimate resales into returns; these cases pin it down together with
// deferral and break handling.
type BuilderSuite struct {
	suite.Suite
	builder *Builder
}

func TestBuilderSuite(t *testing.T) {
	suite.Run(t, new(BuilderSuite))
}

func (s *BuilderSuite) SetupTest() {
	s.builder = NewBuilder(AllowPingPong)
}

// =============================================================================
// Classification
// =============================================================================

func (s *BuilderSuite) TestContinuationKinds() {
	origin := originDoc("AGENCIA", "A")
	links := s.builder.Build([]models.NormalizedDocument{
		origin,
		transfer("e1", models.KindEndorsement, "A", "B", 10),
		transfer("r1", models.KindReinvoice, "B", "C", 20),
		transfer("i1", models.KindInvoice, "C", "D", 30),
	}, origin)

	s.Equal([]models.LinkState{
		models.LinkOK, models.LinkEndorsement, models.LinkReinvoiceTransfer, models.LinkOK,
	}, states(links))
	s.True(links[0].Origin)
	for i, l := range links {
		s.Require().NotNil(l.Position)
		s.Equal(i+1, *l.Position)
	}
	s.Equal("D", models.CurrentHolder(links))
}

func (s *BuilderSuite) TestContinuationIsTestedBeforeReturn() {
	origin := originDoc("A", "B")
	links := s.builder.Build([]models.NormalizedDocument{
		transfer("b-a", models.KindInvoice, "B", "A", 10),
		transfer("a-c", models.KindInvoice, "A", "C", 20),
	}, origin)

	s.Require().Len(links, 3)
	s.Equal(models.LinkOK, links[2].State, "A→C after B→A is a continuation")
	s.Equal("C", models.CurrentHolder(links))
}

func (s *BuilderSuite) TestReturn() {
	s.Run("seen emisor that is not the holder", func() {
		origin := originDoc("A", "B")
		links := s.builder.Build([]models.NormalizedDocument{
			transfer("b-c", models.KindInvoice, "B", "C", 10),
			transfer("b-d", models.KindInvoice, "B", "D", 20),
		}, origin)

		s.Equal(models.LinkReturn, links[2].State)
		s.NotEmpty(links[2].Note)
		s.Equal("D", models.CurrentHolder(links))
	})

	s.Run("unseen emisor is never a return", func() {
		origin := originDoc("A", "B")
		links := s.builder.Build([]models.NormalizedDocument{
			transfer("x-y", models.KindInvoice, "X", "Y", 10),
		}, origin)

		s.Equal(models.LinkBreak, links[1].State)
		s.Nil(links[1].Position)
	})

	s.Run("inconsistent VIN blocks a return", func() {
		origin := originDoc("A", "B")
		origin.VIN = models.Ptr("VIN0000000000001")
		other := transfer("b-c", models.KindInvoice, "A", "C", 10)
		other.VIN = models.Ptr("VIN0000000000002")
		links := s.builder.Build([]models.NormalizedDocument{other}, origin)

		s.Equal(models.LinkBreak, links[1].State)
	})
}

func (s *BuilderSuite) TestPingPongPolicy() {
	origin := originDoc("A", "B")
	docs := []models.NormalizedDocument{
		transfer("b-a", models.KindInvoice, "B", "A", 10),
		transfer("a-c", models.KindInvoice, "A", "C", 20),
		transfer("a-b", models.KindInvoice, "A", "B", 30),
	}

	s.Run("allowed by default", func() {
		links := s.builder.Build(docs, origin)
		s.Equal(models.LinkReturn, links[3].State)
	})

	s.Run("rejected pair ends as break", func() {
		links := NewBuilder(RejectPingPong).Build(docs, origin)
		s.Require().Len(links, 4)
		s.Equal(models.LinkBreak, links[3].State)
		s.Equal("a-b", links[3].Document.ID)
	})
}

// =============================================================================
// Ordering and deferral
// =============================================================================

func (s *BuilderSuite) TestInputOrderDoesNotMatter() {
	origin := originDoc("A", "B")
	links := s.builder.Build([]models.NormalizedDocument{
		transfer("c-d", models.KindInvoice, "C", "D", 30),
		transfer("b-c", models.KindInvoice, "B", "C", 20),
	}, origin)

	s.Equal([]string{"origin", "b-c", "c-d"}, []string{links[0].Document.ID, links[1].Document.ID, links[2].Document.ID})
}

func (s *BuilderSuite) TestUndatedDocumentsAreProcessedLast() {
	origin := originDoc("A", "B")
	undated := transfer("c-d", models.KindInvoice, "C", "D", 0)
	undated.Date = nil
	links := s.builder.Build([]models.NormalizedDocument{
		undated,
		transfer("b-c", models.KindInvoice, "B", "C", 20),
	}, origin)

	s.Require().Len(links, 3)
	s.Equal("c-d", links[2].Document.ID)
	s.Equal(models.LinkOK, links[2].State)
}

func (s *BuilderSuite) TestDeferredDocumentIsRetried() {
	// D→E is dated before C→D, so only the retry can place it.
	origin := originDoc("A", "B")
	links := s.builder.Build([]models.NormalizedDocument{
		transfer("b-c", models.KindInvoice, "B", "C", 10),
		transfer("d-e", models.KindInvoice, "D", "E", 15),
		transfer("c-d", models.KindInvoice, "C", "D", 20),
	}, origin)

	s.Equal([]models.LinkState{models.LinkOK, models.LinkOK, models.LinkOK, models.LinkOK}, states(links))
	s.Equal("E", models.CurrentHolder(links))
}

func (s *BuilderSuite) TestMissingEmisorBreaks() {
	origin := originDoc("A", "B")
	doc := transfer("x", models.KindEndorsement, "", "C", 10)
	doc.EmisorRFC = nil
	links := s.builder.Build([]models.NormalizedDocument{doc}, origin)
	s.Equal(models.LinkBreak, links[1].State)
	s.Contains(links[1].Note, "sin RFC")
}

func (s *BuilderSuite) TestDocumentSharingTheOriginIDIsStillPlaced() {
	origin := originDoc("A", "B")
	d := base.AddDate(2, 0, 0)
	origin.Date = &d
	earlier := transfer("origin", models.KindInvoice, "C", "A", 0)

	links := s.builder.Build([]models.NormalizedDocument{earlier, origin}, origin)

	s.Require().Len(links, 2)
	s.True(links[0].Origin)
	s.Equal("B", links[0].Document.Receptor())
	s.Equal(models.LinkBreak, links[1].State)
	s.Equal("C", links[1].Document.Emisor())
}

func TestParseReturnPolicy(t *testing.T) {
	p, err := ParseReturnPolicy("")
	require.NoError(t, err)
	assert.Equal(t, AllowPingPong, p)

	p, err = ParseReturnPolicy(" Reject-Ping-Pong ")
	require.NoError(t, err)
	assert.Equal(t, RejectPingPong, p)

	_, err = ParseReturnPolicy("maybe")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestFindOrigin(t *testing.T) {
	first := originDoc("AG", "A")
	later := originDoc("AG", "B")
	later.ID = "later"
	d := base.AddDate(1, 0, 0)
	later.Date = &d

	origin, candidates, ok := FindOrigin([]models.NormalizedDocument{
		later,
		transfer("used", models.KindInvoice, "A", "B", 5),
		first,
	})
	require.True(t, ok)
	assert.Equal(t, "origin", origin.ID)
	assert.Len(t, candidates, 2)

	_, _, ok = FindOrigin([]models.NormalizedDocument{transfer("used", models.KindInvoice, "A", "B", 5)})
	assert.False(t, ok)
}

// =============================================================================
// Properties
// =============================================================================

func TestChainProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 150
	properties := gopter.NewProperties(parameters)
	builder := NewBuilder(AllowPingPong)

	// N linear transfers in any input order: positions 1..N+1, one origin.
	properties.Property("linear chains place every link", prop.ForAll(
		func(n int, seed int64) bool {
			origin := originDoc("RFC0", "RFC1")
			docs := make([]models.NormalizedDocument, 0, n)
			for i := 1; i <= n; i++ {
				docs = append(docs, transfer(fmt.Sprintf("d%d", i), models.KindInvoice,
					fmt.Sprintf("RFC%d", i), fmt.Sprintf("RFC%d", i+1), i*7))
			}
			rand.New(rand.NewSource(seed)).Shuffle(len(docs), func(i, j int) { docs[i], docs[j] = docs[j], docs[i] })

			links := builder.Build(docs, origin)
			if len(links) != n+1 {
				return false
			}
			origins := 0
			for i, l := range links {
				if l.Position == nil || *l.Position != i+1 || l.State == models.LinkBreak {
					return false
				}
				if l.Origin {
					origins++
				}
			}
			return origins == 1 && links[0].Origin
		},
		gen.IntRange(0, 25),
		gen.Int64(),
	))

	// Over random small-alphabet transfers every RETURN emisor appeared in an
	// earlier placed link, and every break is unplaced.
	properties.Property("returns only come from seen RFCs", prop.ForAll(
		func(pairs []int) bool {
			origin := originDoc("P0", "P1")
			docs := make([]models.NormalizedDocument, 0, len(pairs))
			for i, p := range pairs {
				from, to := fmt.Sprintf("P%d", p%5), fmt.Sprintf("P%d", (p/5)%5)
				docs = append(docs, transfer(fmt.Sprintf("d%d", i), models.KindInvoice, from, to, i+1))
			}
			links := builder.Build(docs, origin)

			seen := map[string]bool{}
			for _, l := range links {
				if l.State == models.LinkBreak {
					if l.Position != nil {
						return false
					}
					continue
				}
				if l.State == models.LinkReturn && !seen[l.Document.Emisor()] {
					return false
				}
				seen[l.Document.Emisor()] = true
				seen[l.Document.Receptor()] = true
			}
			return len(links) == len(docs)+1
		},
		gen.SliceOf(gen.IntRange(0, 24)),
	))

	properties.TestingRun(t)
}
