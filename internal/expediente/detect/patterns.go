package detect

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"expediente/internal/expediente/models"
	"expediente/pkg/platform/dates"
	xstrings "expediente/pkg/platform/strings"
)

const (
	pingPongMinExchanges   = 3
	adminDuplicateWindow   = time.Hour
	triangulationMaxDays   = 30
	triangulationMinRFCs   = 3
	endorsementRunMin      = 4
	frequentActorMin       = 5
	pingPongHighScore      = 60
	pingPongPointsPerTrade = 10
	pingPongMaxTrades      = 6
)

// agencyKeywords mark business names that legitimately appear many times in
// one chain.
var agencyKeywords = []string{
	"AGENCIA", "AUTOMOTRIZ", "AUTOMOTORES", "AUTOS", "MOTORS", "DISTRIBUIDORA",
	"ARRENDADORA", "FINANCIERA", "SEMINUEVOS", "CONCESIONARIO", "LEASING",
}

// corporateTokens are ignored when comparing surnames.
var corporateTokens = map[string]bool{
	"SA": true, "DE": true, "CV": true, "RL": true, "SAPI": true, "SC": true,
	"DEL": true, "LA": true, "LOS": true, "LAS": true, "Y": true,
}

// PingPong describes two RFCs trading the vehicle back and forth.
type PingPong struct {
	RFCs          [2]string `json:"rfcs"`
	Exchanges     int       `json:"exchanges"`
	Suppressed    int       `json:"suppressedDuplicates"`
	PriceTrend    string    `json:"priceTrend"`
	SharedSurname bool      `json:"sharedSurname"`
	Score         int       `json:"score"`
	DocumentIDs   []string  `json:"documentIds"`
}

// PatternDetection reports suspicious transfer shapes.
type PatternDetection struct {
	Patterns  []models.Gap `json:"patterns"`
	PingPongs []PingPong   `json:"pingPong"`
}

// Patterns looks for ping-pong trading, rapid triangulation, long
// endorsement runs, over-frequent actors and return-then-diverge cycles.
func Patterns(in Input) PatternDetection {
	placed := models.PlacedLinks(in.Chain)
	out := PatternDetection{Patterns: []models.Gap{}, PingPongs: []PingPong{}}

	for _, pp := range pingPongs(placed) {
		out.PingPongs = append(out.PingPongs, pp.PingPong)
		sev := models.SeverityMedium
		if pp.Score >= pingPongHighScore {
			sev = models.SeverityHigh
		}
		out.Patterns = append(out.Patterns, gap(models.GapPatternPingPong, sev,
			fmt.Sprintf("%s y %s intercambian el vehículo %d veces (puntaje %d, precios %s)",
				pp.RFCs[0], pp.RFCs[1], pp.Exchanges, pp.Score, pp.PriceTrend),
			pp.docs...))
	}
	out.Patterns = append(out.Patterns, triangulations(placed)...)
	out.Patterns = append(out.Patterns, endorsementRuns(placed)...)
	out.Patterns = append(out.Patterns, frequentActors(placed)...)
	out.Patterns = append(out.Patterns, complexCycles(placed)...)
	return out
}

type pingPongFinding struct {
	PingPong
	docs []models.NormalizedDocument
}

func pairKey(a, b string) [2]string {
	if a > b {
		a, b = b, a
	}
	return [2]string{a, b}
}

func pingPongs(placed []models.OwnershipLink) []pingPongFinding {
	byPair := make(map[[2]string][]models.NormalizedDocument)
	var order [][2]string
	for _, l := range placed {
		e, r := l.Document.Emisor(), l.Document.Receptor()
		if e == "" || r == "" || e == r {
			continue
		}
		k := pairKey(e, r)
		if _, ok := byPair[k]; !ok {
			order = append(order, k)
		}
		byPair[k] = append(byPair[k], l.Document)
	}

	var out []pingPongFinding
	for _, k := range order {
		kept := DedupeAdministrative(byPair[k])
		if len(kept) < pingPongMinExchanges {
			continue
		}
		f := pingPongFinding{docs: kept}
		f.RFCs = k
		f.Exchanges = len(kept)
		f.Suppressed = len(byPair[k]) - len(kept)
		f.PriceTrend = priceTrend(kept)
		f.SharedSurname = sharedSurname(namesOf(k[0], kept), namesOf(k[1], kept))
		f.Score = min(f.Exchanges, pingPongMaxTrades) * pingPongPointsPerTrade
		switch f.PriceTrend {
		case "ascendente":
			f.Score += 20
		case "constante":
			f.Score += 15
		}
		if f.SharedSurname {
			f.Score += 20
		}
		for _, d := range kept {
			f.DocumentIDs = append(f.DocumentIDs, d.ID)
		}
		out = append(out, f)
	}
	return out
}

// DedupeAdministrative drops documents that restate an earlier transfer:
// same direction and either the same document number, issuance within one
// hour, or the same vehicle descriptor on the same day.
func DedupeAdministrative(docs []models.NormalizedDocument) []models.NormalizedDocument {
	var kept []models.NormalizedDocument
	for _, d := range docs {
		dup := false
		for _, k := range kept {
			if isAdministrativeDuplicate(k, d) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, d)
		}
	}
	return kept
}

func isAdministrativeDuplicate(a, b models.NormalizedDocument) bool {
	if a.Emisor() != b.Emisor() || a.Receptor() != b.Receptor() {
		return false
	}
	if n := models.Str(a.DocumentNumber); n != "" && n == models.Str(b.DocumentNumber) {
		return true
	}
	ta, tb := issuance(a), issuance(b)
	if ta != nil && tb != nil {
		diff := ta.Sub(*tb)
		if diff < 0 {
			diff = -diff
		}
		if diff <= adminDuplicateWindow {
			return true
		}
	}
	desc := a.Vehicle.Descriptor()
	return desc != "" && desc == b.Vehicle.Descriptor() &&
		a.Date != nil && b.Date != nil && a.Date.Equal(*b.Date)
}

func issuance(d models.NormalizedDocument) *time.Time {
	if d.IssuedAt != nil {
		return d.IssuedAt
	}
	return d.CreatedAt
}

func priceTrend(docs []models.NormalizedDocument) string {
	var prices []float64
	for _, d := range docs {
		if d.Total != nil {
			prices = append(prices, *d.Total)
		}
	}
	if len(prices) < 2 {
		return "sin datos"
	}
	up, flat := true, true
	for i := 1; i < len(prices); i++ {
		if prices[i] <= prices[i-1] {
			up = false
		}
		if prices[i] != prices[i-1] {
			flat = false
		}
	}
	switch {
	case up:
		return "ascendente"
	case flat:
		return "constante"
	default:
		return "irregular"
	}
}

func namesOf(rfc string, docs []models.NormalizedDocument) []string {
	var out []string
	for _, d := range docs {
		if d.Emisor() == rfc && d.EmisorName != nil {
			out = append(out, *d.EmisorName)
		}
		if d.Receptor() == rfc && d.ReceptorName != nil {
			out = append(out, *d.ReceptorName)
		}
	}
	return out
}

func sharedSurname(a, b []string) bool {
	tokens := func(names []string) map[string]bool {
		m := make(map[string]bool)
		for _, n := range names {
			for _, t := range xstrings.Tokens(n) {
				if len(t) >= 4 && !corporateTokens[t] {
					m[t] = true
				}
			}
		}
		return m
	}
	ta, tb := tokens(a), tokens(b)
	for t := range ta {
		if tb[t] {
			return true
		}
	}
	return false
}

// triangulations finds ownership returning to its starting RFC within
// triangulationMaxDays through at least triangulationMinRFCs parties.
func triangulations(placed []models.OwnershipLink) []models.Gap {
	var out []models.Gap
	for i := 0; i < len(placed); i++ {
		start := placed[i].Document
		if start.Emisor() == "" || start.Date == nil {
			continue
		}
		parties := map[string]bool{start.Emisor(): true, start.Receptor(): true}
		for j := i + 1; j < len(placed); j++ {
			d := placed[j].Document
			if d.Date == nil || dates.DaysBetween(*start.Date, *d.Date) > triangulationMaxDays {
				break
			}
			parties[d.Emisor()] = true
			parties[d.Receptor()] = true
			if d.Receptor() != start.Emisor() || len(parties) < triangulationMinRFCs {
				continue
			}
			docs := make([]models.NormalizedDocument, 0, j-i+1)
			for _, l := range placed[i : j+1] {
				docs = append(docs, l.Document)
			}
			out = append(out, gap(models.GapPatternTriangulation, models.SeverityHigh,
				fmt.Sprintf("el vehículo vuelve a %s en %d días pasando por %d participantes",
					start.Emisor(), dates.DaysBetween(*start.Date, *d.Date), len(parties)),
				docs...))
			i = j
			break
		}
	}
	return out
}

func endorsementRuns(placed []models.OwnershipLink) []models.Gap {
	var out []models.Gap
	var run []models.NormalizedDocument
	flush := func() {
		if len(run) >= endorsementRunMin {
			out = append(out, gap(models.GapPatternEndorsementRun, models.SeverityMedium,
				fmt.Sprintf("%d endosos consecutivos sin refacturación", len(run)), run...))
		}
		run = nil
	}
	for _, l := range placed {
		if l.State == models.LinkEndorsement {
			run = append(run, l.Document)
			continue
		}
		flush()
	}
	flush()
	return out
}

// IsAgency reports whether an RFC belongs to a dealer or financial
// institution: the origin seller, or a business name with a dealer keyword.
func IsAgency(rfc string, names []string, originEmisor string) bool {
	if rfc == originEmisor {
		return true
	}
	for _, n := range names {
		folded := xstrings.Fold(n)
		for _, k := range agencyKeywords {
			if strings.Contains(folded, k) {
				return true
			}
		}
	}
	return false
}

func frequentActors(placed []models.OwnershipLink) []models.Gap {
	if len(placed) == 0 {
		return nil
	}
	originEmisor := placed[0].Document.Emisor()
	counts := make(map[string]int)
	docsOf := make(map[string][]models.NormalizedDocument)
	for _, l := range placed {
		for _, r := range []string{l.Document.Emisor(), l.Document.Receptor()} {
			if r == "" {
				continue
			}
			counts[r]++
			docsOf[r] = append(docsOf[r], l.Document)
		}
	}
	rfcs := make([]string, 0, len(counts))
	for r := range counts {
		rfcs = append(rfcs, r)
	}
	sort.Strings(rfcs)

	var out []models.Gap
	for _, r := range rfcs {
		if counts[r] < frequentActorMin || IsAgency(r, namesOf(r, docsOf[r]), originEmisor) {
			continue
		}
		out = append(out, gap(models.GapPatternFrequentActor, models.SeverityMedium,
			fmt.Sprintf("%s aparece %d veces en la cadena sin ser agencia", r, counts[r]), docsOf[r]...))
	}
	return out
}

// complexCycles flags a RETURN immediately followed by a transfer to a
// third RFC.
func complexCycles(placed []models.OwnershipLink) []models.Gap {
	var out []models.Gap
	for i := 0; i+1 < len(placed); i++ {
		ret, next := placed[i], placed[i+1]
		if ret.State != models.LinkReturn {
			continue
		}
		to := next.Document.Receptor()
		if to == "" || to == ret.Document.Emisor() || to == ret.Document.Receptor() {
			continue
		}
		out = append(out, gap(models.GapPatternComplexCycle, models.SeverityMedium,
			fmt.Sprintf("retorno a %s seguido de transferencia a un tercero, %s", ret.Document.Emisor(), to),
			ret.Document, next.Document))
	}
	return out
}
