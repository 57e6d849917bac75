// Package chain orders transfer documents into an ownership chain.
package chain

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	"expediente/internal/expediente/models"
	dErrors "expediente/pkg/domain-errors"
)

// ReturnPolicy decides what happens to a return between two RFCs that have
// already traded the vehicle in both directions.
type ReturnPolicy string

const (
	// AllowPingPong accepts recurring direct returns.
	AllowPingPong ReturnPolicy = "allow-ping-pong"
	// RejectPingPong defers them; they end as BREAK.
	RejectPingPong ReturnPolicy = "reject-ping-pong"
)

// ParseReturnPolicy accepts the policy names; "" is AllowPingPong.
func ParseReturnPolicy(s string) (ReturnPolicy, error) {
	switch ReturnPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AllowPingPong:
		return AllowPingPong, nil
	case RejectPingPong:
		return RejectPingPong, nil
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("unknown return policy %q", s))
	}
}

// Builder builds ownership chains. The zero value uses AllowPingPong.
type Builder struct {
	policy ReturnPolicy
}

// NewBuilder returns a Builder applying policy to recurring returns.
func NewBuilder(policy ReturnPolicy) *Builder {
	return &Builder{policy: policy}
}

// Policy reports the return policy in effect.
func (b *Builder) Policy() ReturnPolicy {
	if b == nil || b.policy == "" {
		return AllowPingPong
	}
	return b.policy
}

type pair struct{ from, to string }

type state struct {
	policy    ReturnPolicy
	links     []models.OwnershipLink
	next      int
	current   string
	seen      map[string]bool
	vins      map[string]bool
	exchanged map[pair]bool
}

// Build seeds the chain with origin at position 1 and places every other
// transfer in date order. Continuation is tested before return: in
// A→B→A→C the final A→C is a continuation. Documents that fit neither rule
// get one retry after the main pass and otherwise become BREAK links.
//
// The returned slice holds placed links by position, then breaks.
func (b *Builder) Build(transfers []models.NormalizedDocument, origin models.NormalizedDocument) []models.OwnershipLink {
	st := &state{
		policy:    b.Policy(),
		next:      1,
		seen:      make(map[string]bool),
		vins:      make(map[string]bool),
		exchanged: make(map[pair]bool),
	}
	st.place(origin, models.LinkOK, true, "")

	var deferred []models.NormalizedDocument
	skippedOrigin := false
	for _, doc := range SortByDate(transfers) {
		if !skippedOrigin && isOrigin(doc, origin) {
			skippedOrigin = true
			continue
		}
		if !st.try(doc) {
			deferred = append(deferred, doc)
		}
	}

	var breaks []models.OwnershipLink
	for _, doc := range deferred {
		if st.try(doc) {
			continue
		}
		breaks = append(breaks, models.OwnershipLink{
			State:    models.LinkBreak,
			Document: doc,
			Note:     breakNote(doc, st.current),
		})
	}
	return append(st.links, breaks...)
}

// isOrigin matches the origin by content, not ID alone: uploads may share
// a file id.
func isOrigin(doc, origin models.NormalizedDocument) bool {
	return doc.ID == origin.ID && reflect.DeepEqual(doc, origin)
}

func (st *state) try(doc models.NormalizedDocument) bool {
	emisor := doc.Emisor()
	if emisor == "" {
		return false
	}
	if emisor == st.current {
		st.place(doc, continuation(doc.Kind), false, "")
		return true
	}
	if !st.seen[emisor] || !st.vinConsistent(doc) {
		return false
	}
	receptor := doc.Receptor()
	if st.policy == RejectPingPong && st.exchanged[pair{emisor, receptor}] && st.exchanged[pair{receptor, emisor}] {
		return false
	}
	st.place(doc, models.LinkReturn, false,
		fmt.Sprintf("%s recupera la titularidad sin ser el poseedor inmediato anterior (%s)", emisor, st.current))
	return true
}

func (st *state) place(doc models.NormalizedDocument, s models.LinkState, origin bool, note string) {
	pos := st.next
	st.next++
	st.links = append(st.links, models.OwnershipLink{
		Position: &pos,
		State:    s,
		Origin:   origin,
		Document: doc,
		Note:     note,
	})
	e, r := doc.Emisor(), doc.Receptor()
	if e != "" {
		st.seen[e] = true
	}
	if r != "" {
		st.seen[r] = true
	}
	if e != "" && r != "" {
		st.exchanged[pair{e, r}] = true
	}
	if v := models.Str(doc.VIN); v != "" {
		st.vins[v] = true
	}
	st.current = r
}

func (st *state) vinConsistent(doc models.NormalizedDocument) bool {
	v := models.Str(doc.VIN)
	return v == "" || len(st.vins) == 0 || st.vins[v]
}

func continuation(kind models.DocumentKind) models.LinkState {
	switch kind {
	case models.KindEndorsement:
		return models.LinkEndorsement
	case models.KindReinvoice:
		return models.LinkReinvoiceTransfer
	default:
		return models.LinkOK
	}
}

func breakNote(doc models.NormalizedDocument, current string) string {
	if doc.Emisor() == "" {
		return "documento sin RFC emisor"
	}
	return fmt.Sprintf("el emisor %s no es el poseedor actual (%s) ni un titular previo", doc.Emisor(), current)
}

// SortByDate returns docs stably sorted by event date, undated last.
func SortByDate(docs []models.NormalizedDocument) []models.NormalizedDocument {
	out := append([]models.NormalizedDocument(nil), docs...)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Date, out[j].Date
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
	return out
}

// FindOrigin picks the earliest first-sale invoice among docs. candidates
// lists every first-sale invoice so callers can report ambiguity.
func FindOrigin(docs []models.NormalizedDocument) (origin models.NormalizedDocument, candidates []models.NormalizedDocument, ok bool) {
	for _, d := range SortByDate(docs) {
		if d.IsOriginCandidate() {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return models.NormalizedDocument{}, nil, false
	}
	return candidates[0], candidates, true
}
