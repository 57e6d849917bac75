package detect

import (
	"fmt"
	"strings"

	"expediente/internal/expediente/models"
)

// SequenceAnalysis reports discontinuities in the placed chain.
type SequenceAnalysis struct {
	HasGaps bool                   `json:"hasGaps"`
	Gaps    []models.Gap           `json:"gaps"`
	Returns []models.OwnershipLink `json:"retornos"`
}

// Sequence flags consecutive placed links that do not connect, aggregates
// unplaced documents into one orphan gap, and reports certificates whose
// owner never appears in the chain.
func Sequence(in Input) SequenceAnalysis {
	out := SequenceAnalysis{Gaps: []models.Gap{}, Returns: []models.OwnershipLink{}}
	placed := models.PlacedLinks(in.Chain)

	for i := 0; i+1 < len(placed); i++ {
		cur, next := placed[i], placed[i+1]
		if next.State == models.LinkReturn {
			out.Returns = append(out.Returns, next)
		}
		if cur.Document.Receptor() == next.Document.Emisor() {
			continue
		}
		if next.State == models.LinkReturn || next.State == models.LinkEndorsement {
			continue
		}
		out.Gaps = append(out.Gaps, gap(models.GapSequence, models.SeverityHigh,
			fmt.Sprintf("falta la transferencia de %s a %s entre las posiciones %d y %d",
				rfcOrUnknown(cur.Document.Receptor()), rfcOrUnknown(next.Document.Emisor()), *cur.Position, *next.Position),
			cur.Document, next.Document))
	}

	var orphans []models.NormalizedDocument
	for _, l := range in.Chain {
		if !l.Placed() {
			orphans = append(orphans, l.Document)
		}
	}
	if len(orphans) > 0 {
		ids := make([]string, len(orphans))
		for i, d := range orphans {
			ids[i] = d.ID
		}
		out.Gaps = append(out.Gaps, gap(models.GapOrphan, models.SeverityHigh,
			fmt.Sprintf("%d documento(s) no se pudieron ubicar en la cadena: %s", len(orphans), strings.Join(ids, ", ")),
			orphans...))
	}

	inChain := models.ChainRFCs(in.Chain)
	for _, cert := range ofKind(in.Documents, models.KindCertificate) {
		owner := cert.OwnerRFC()
		if owner == "" || inChain[owner] {
			continue
		}
		out.Gaps = append(out.Gaps, gap(models.GapOrphan, models.SeverityMedium,
			fmt.Sprintf("la tarjeta %s está a nombre de %s, que no aparece en la cadena de propiedad", cert.ID, owner),
			cert))
	}

	out.HasGaps = len(out.Gaps) > 0
	return out
}

func rfcOrUnknown(rfc string) string {
	if rfc == "" {
		return "(sin RFC)"
	}
	return rfc
}
