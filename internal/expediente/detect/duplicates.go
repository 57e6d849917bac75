package detect

import (
	"fmt"
	"sort"

	"expediente/internal/expediente/models"
)

const rfcPairRepeatMin = 3

// DuplicateDetection reports repeated document numbers and repeated
// transfers between the same two parties.
type DuplicateDetection struct {
	Duplicates []models.Gap `json:"duplicates"`
}

// Duplicates looks at every normalized document, placed or not.
func Duplicates(in Input) DuplicateDetection {
	out := DuplicateDetection{Duplicates: []models.Gap{}}

	byNumber := make(map[string][]models.NormalizedDocument)
	var numbers []string
	for _, d := range in.Documents {
		n := models.Str(d.DocumentNumber)
		if n == "" {
			continue
		}
		if _, ok := byNumber[n]; !ok {
			numbers = append(numbers, n)
		}
		byNumber[n] = append(byNumber[n], d)
	}
	for _, n := range numbers {
		docs := byNumber[n]
		if len(docs) < 2 {
			continue
		}
		byKind := make(map[models.DocumentKind][]models.NormalizedDocument)
		var kinds []models.DocumentKind
		for _, d := range docs {
			if _, ok := byKind[d.Kind]; !ok {
				kinds = append(kinds, d.Kind)
			}
			byKind[d.Kind] = append(byKind[d.Kind], d)
		}
		for _, k := range kinds {
			if same := byKind[k]; len(same) > 1 {
				out.Duplicates = append(out.Duplicates, gap(models.GapDuplicateNumber, models.SeverityHigh,
					fmt.Sprintf("%d documentos de tipo %s con el folio %s", len(same), k, n), same...))
			}
		}
		if crossKind(kinds) {
			out.Duplicates = append(out.Duplicates, gap(models.GapDuplicateCrossKind, models.SeverityLow,
				fmt.Sprintf("el folio %s aparece en documentos de distinto tipo", n), docs...))
		}
	}

	type directed struct{ from, to string }
	byPair := make(map[directed][]models.NormalizedDocument)
	for _, d := range transfers(in.Documents) {
		if d.Emisor() == "" || d.Receptor() == "" {
			continue
		}
		k := directed{d.Emisor(), d.Receptor()}
		byPair[k] = append(byPair[k], d)
	}
	pairs := make([]directed, 0, len(byPair))
	for k := range byPair {
		pairs = append(pairs, k)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].from != pairs[j].from {
			return pairs[i].from < pairs[j].from
		}
		return pairs[i].to < pairs[j].to
	})
	for _, k := range pairs {
		if docs := byPair[k]; len(docs) >= rfcPairRepeatMin {
			out.Duplicates = append(out.Duplicates, gap(models.GapDuplicateRFCPair, models.SeverityMedium,
				fmt.Sprintf("%d transferencias de %s a %s", len(docs), k.from, k.to), docs...))
		}
	}
	return out
}

// crossKind reports a folio shared across kinds. An endorsement citing the
// folio of the invoice it endorses is expected and does not count.
func crossKind(kinds []models.DocumentKind) bool {
	invoice := false
	for _, k := range kinds {
		if k == models.KindInvoice || k == models.KindReinvoice {
			invoice = true
		}
	}
	distinct := 0
	for _, k := range kinds {
		if k == models.KindEndorsement && invoice {
			continue
		}
		distinct++
	}
	return distinct > 1
}
