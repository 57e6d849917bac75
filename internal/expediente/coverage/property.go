package coverage

import (
	"sort"
	"time"

	"expediente/internal/expediente/models"
	"expediente/internal/vigencia"
)

// PropertyValidation answers whether the current holder can drive the
// vehicle today.
type PropertyValidation struct {
	CurrentOwner      string              `json:"propietario_actual"`
	Name              string              `json:"nombre,omitempty"`
	Certificates      []CertificateStatus `json:"tarjetas_propietario_actual"`
	HasValid          bool                `json:"tiene_tarjeta_vigente"`
	OwnerWithoutValid bool                `json:"propietario_actual_sin_vigencia"`
}

// Property filters the tarjetas analysis down to the current holder.
func Property(in Input, t TarjetasAnalysis) PropertyValidation {
	current := models.CurrentHolder(in.Chain)
	out := PropertyValidation{CurrentOwner: current, Certificates: []CertificateStatus{}}
	if current == "" {
		return out
	}
	if placed := models.PlacedLinks(in.Chain); len(placed) > 0 {
		out.Name = models.Str(placed[len(placed)-1].Document.ReceptorName)
	}
	for _, c := range t.Certificates {
		if c.OwnerRFC != current {
			continue
		}
		out.Certificates = append(out.Certificates, c)
		if c.Status == StatusValid {
			out.HasValid = true
		}
	}
	out.OwnerWithoutValid = !out.HasValid
	return out
}

// StateSummary is the rule applied to one jurisdiction's certificates and
// how they fared.
type StateSummary struct {
	State            string         `json:"estado"`
	Model            vigencia.Model `json:"modelo"`
	Basis            string         `json:"fundamento,omitempty"`
	RequiresRefrendo bool           `json:"requiere_refrendo"`
	DocumentationGap bool           `json:"hueco_documental"`
	Total            int            `json:"total"`
	Valid            int            `json:"vigentes"`
	Expired          int            `json:"vencidas"`
	Indeterminate    int            `json:"indeterminadas"`
	Cancelled        int            `json:"canceladas"`
}

// VigenciaAnalysis groups certificate verdicts by jurisdiction.
type VigenciaAnalysis struct {
	AsOf          time.Time      `json:"asOf"`
	Total         int            `json:"total"`
	Valid         int            `json:"vigentes"`
	Expired       int            `json:"vencidas"`
	Indeterminate int            `json:"indeterminadas"`
	Cancelled     int            `json:"canceladas"`
	States        []StateSummary `json:"estados"`
}

// Vigencia summarizes t per jurisdiction. Certificates from an unknown
// jurisdiction are grouped under their raw state text.
func Vigencia(in Input, t TarjetasAnalysis) VigenciaAnalysis {
	engine := in.engine()
	out := VigenciaAnalysis{
		AsOf:          in.AsOf,
		Total:         t.Total,
		Valid:         t.Valid,
		Expired:       t.Expired,
		Indeterminate: t.Indeterminate,
		Cancelled:     t.Cancelled,
		States:        []StateSummary{},
	}
	index := make(map[string]int)
	for _, c := range t.Certificates {
		key := c.State
		rule, known := engine.Resolve(c.State)
		if known {
			key = rule.Name
		}
		i, ok := index[key]
		if !ok {
			s := StateSummary{State: key, DocumentationGap: c.Verdict.DocumentationGap}
			if known {
				s.Model = rule.Model
				s.Basis = rule.Basis
				s.RequiresRefrendo = rule.RequiresRefrendo
				s.DocumentationGap = rule.DocumentationGap
			}
			index[key] = len(out.States)
			out.States = append(out.States, s)
			i = index[key]
		}
		s := &out.States[i]
		s.Total++
		switch c.Status {
		case StatusValid:
			s.Valid++
		case StatusExpired:
			s.Expired++
		case StatusCancelled:
			s.Cancelled++
		default:
			s.Indeterminate++
		}
	}
	sort.Slice(out.States, func(i, j int) bool { return out.States[i].State < out.States[j].State })
	return out
}
