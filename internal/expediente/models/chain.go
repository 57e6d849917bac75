package models

// LinkState classifies a link in the ownership chain.
type LinkState string

const (
	LinkOK                LinkState = "OK"
	LinkEndorsement       LinkState = "ENDORSEMENT"
	LinkReinvoiceTransfer LinkState = "REINVOICE-TRANSFER"
	LinkReturn            LinkState = "RETURN"
	LinkBreak             LinkState = "BREAK"
)

// OwnershipLink is one node of the built chain.
//
// Invariants:
//   - exactly one link per chain has Origin=true, Position=1 and State=OK
//   - State=BREAK implies Position=nil
type OwnershipLink struct {
	Position *int               `json:"position"`
	State    LinkState          `json:"state"`
	Origin   bool               `json:"origin"`
	Document NormalizedDocument `json:"document"`
	Note     string             `json:"note,omitempty"`
}

// Placed reports whether the link has a position in the sequence.
func (l OwnershipLink) Placed() bool {
	return l.Position != nil
}

// PlacedLinks returns placed links in position order. The builder already
// emits them in order; this only filters breaks out.
func PlacedLinks(chain []OwnershipLink) []OwnershipLink {
	out := make([]OwnershipLink, 0, len(chain))
	for _, l := range chain {
		if l.Placed() {
			out = append(out, l)
		}
	}
	return out
}

// CurrentHolder is the receptor of the last placed link, or "".
func CurrentHolder(chain []OwnershipLink) string {
	placed := PlacedLinks(chain)
	if len(placed) == 0 {
		return ""
	}
	return placed[len(placed)-1].Document.Receptor()
}

// ChainRFCs returns every emisor and receptor RFC of placed links.
func ChainRFCs(chain []OwnershipLink) map[string]bool {
	out := make(map[string]bool)
	for _, l := range PlacedLinks(chain) {
		if e := l.Document.Emisor(); e != "" {
			out[e] = true
		}
		if r := l.Document.Receptor(); r != "" {
			out[r] = true
		}
	}
	return out
}
