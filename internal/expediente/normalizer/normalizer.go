// Package normalizer projects raw OCR documents onto models.NormalizedDocument.
package normalizer

import (
	"fmt"
	"time"

	"expediente/internal/expediente/models"
	"expediente/internal/vigencia"
	xstrings "expediente/pkg/platform/strings"
)

// Field priority lists, folded keys, highest priority first.
var (
	vinKeys       = []string{"vin", "niv", "numero_de_serie", "numero_serie", "no_serie", "serie"}
	brandKeys     = []string{"marca"}
	modelKeys     = []string{"modelo", "linea", "submarca", "version"}
	yearKeys      = []string{"ano_modelo", "anio_modelo", "modelo_anio", "ano", "anio", "year"}
	conditionKeys = []string{"nuevo_usado", "condicion", "tipo_venta", "estado_vehiculo"}
	stateKeys     = []string{"estado", "entidad", "entidad_federativa", "estado_emisor"}
	plateKeys     = []string{"placa", "placas", "numero_de_placa", "numero_placa"}

	invoiceDateKeys     = []string{"fecha_factura", "fecha_hora_emision", "fecha_emision", "fecha"}
	invoiceIssuedKeys   = []string{"fecha_hora_emision", "fecha_hora_certificacion", "fecha_emision", "fecha_factura"}
	invoiceEmisorRFC    = []string{"rfc_emisor", "emisor_rfc"}
	invoiceEmisorName   = []string{"nombre_emisor", "emisor_nombre", "razon_social_emisor", "emisor"}
	invoiceReceptorRFC  = []string{"rfc_receptor", "receptor_rfc"}
	invoiceReceptorName = []string{"nombre_receptor", "receptor_nombre", "razon_social_receptor", "receptor"}
	invoiceTotalKeys    = []string{"total", "importe_total", "monto_total", "monto"}
	invoiceNumberKeys   = []string{"folio", "folio_fiscal", "numero_factura", "uuid"}

	endorsementDateKeys     = []string{"fecha_endoso", "fecha"}
	endorsementEmisorRFC    = []string{"rfc_endosante", "endosante_rfc"}
	endorsementEmisorName   = []string{"nombre_endosante", "endosante"}
	endorsementReceptorRFC  = []string{"rfc_endosatario", "endosatario_rfc"}
	endorsementReceptorName = []string{"nombre_endosatario", "endosatario"}
	endorsementNumberKeys   = []string{"folio_factura", "numero_factura", "folio"}

	certDateKeys       = []string{"fecha_expedicion", "fecha_emision", "fecha"}
	certExpirationKeys = []string{"fecha_vencimiento", "vigencia", "vigente_hasta", "fecha_vigencia"}
	certOwnerRFC       = []string{"rfc_propietario", "propietario_rfc", "rfc"}
	certOwnerName      = []string{"nombre_propietario", "propietario", "nombre"}
	certNumberKeys     = []string{"folio", "numero_tarjeta", "folio_tarjeta"}
	certPlatesDateKeys = []string{"fecha_placas", "fecha_alta_placas", "fecha_asignacion_placas"}

	cancellationDateKeys   = []string{"fecha_baja", "fecha"}
	cancellationReasonKeys = []string{"motivo", "motivo_baja", "causa"}
	cancellationNumberKeys = []string{"folio", "numero_baja"}

	verificationDateKeys   = []string{"fecha_verificacion", "fecha"}
	verificationHologram   = []string{"holograma", "tipo_holograma"}
	verificationResultKeys = []string{"resultado", "dictamen"}
	verificationNumberKeys = []string{"folio", "certificado", "numero_certificado"}
)

// Normalizer maps RawDocument to NormalizedDocument. It is stateless; the
// engine only supplies certificate expirations.
type Normalizer struct {
	engine *vigencia.Engine
}

// New returns a Normalizer that derives missing certificate expirations
// with engine.
func New(engine *vigencia.Engine) *Normalizer {
	if engine == nil {
		engine = vigencia.NewEngine()
	}
	return &Normalizer{engine: engine}
}

// Normalize projects raw onto the canonical schema. ok is false for
// unrecognized kinds.
func (n *Normalizer) Normalize(raw models.RawDocument) (models.NormalizedDocument, bool) {
	kind := models.ParseDocumentKind(raw.DocumentType)
	if kind == models.KindUnrecognized {
		return models.NormalizedDocument{}, false
	}
	f := newFields(raw.OCR)
	doc := models.NormalizedDocument{
		ID:        raw.FileID,
		Kind:      kind,
		CreatedAt: parseCreatedAt(raw.CreatedAt),
		VIN:       vin(f),
		Vehicle:   vehicle(f),
	}

	switch kind {
	case models.KindInvoice, models.KindReinvoice:
		doc.Date = f.date(invoiceDateKeys)
		doc.IssuedAt = f.timestamp(invoiceIssuedKeys)
		doc.EmisorRFC = rfc(f, invoiceEmisorRFC)
		doc.EmisorName = f.str(invoiceEmisorName)
		doc.ReceptorRFC = rfc(f, invoiceReceptorRFC)
		doc.ReceptorName = f.str(invoiceReceptorName)
		doc.Total = f.amount(invoiceTotalKeys)
		doc.DocumentNumber = folio(f, invoiceNumberKeys)
		doc.Condition = condition(f)
	case models.KindEndorsement:
		doc.Date = f.date(endorsementDateKeys)
		doc.IssuedAt = f.timestamp(endorsementDateKeys)
		doc.EmisorRFC = rfc(f, endorsementEmisorRFC)
		doc.EmisorName = f.str(endorsementEmisorName)
		doc.ReceptorRFC = rfc(f, endorsementReceptorRFC)
		doc.ReceptorName = f.str(endorsementReceptorName)
		doc.DocumentNumber = folio(f, endorsementNumberKeys)
	case models.KindCertificate:
		doc.Date = f.date(certDateKeys)
		doc.DocumentNumber = folio(f, certNumberKeys)
		doc.Certificate = n.certificate(f, doc)
	case models.KindCancellation:
		doc.Date = f.date(cancellationDateKeys)
		doc.DocumentNumber = folio(f, cancellationNumberKeys)
		doc.Cancellation = &models.CancellationFields{
			State:    f.str(stateKeys),
			Plate:    plate(f),
			OwnerRFC: rfc(f, certOwnerRFC),
			Reason:   f.str(cancellationReasonKeys),
		}
	case models.KindVerification:
		doc.Date = f.date(verificationDateKeys)
		doc.DocumentNumber = folio(f, verificationNumberKeys)
		doc.Verification = &models.VerificationFields{
			State:    f.str(stateKeys),
			Plate:    plate(f),
			Hologram: f.str(verificationHologram),
			Result:   f.str(verificationResultKeys),
		}
	}
	return doc, true
}

// NormalizeAll normalizes every recognized document, assigning positional
// ids to documents that arrive without one. Repeated ids get a numeric
// suffix ("f1", "f1-2") so every document stays addressable. skipped counts
// unrecognized kinds.
func (n *Normalizer) NormalizeAll(raws []models.RawDocument) (docs []models.NormalizedDocument, skipped int) {
	docs = make([]models.NormalizedDocument, 0, len(raws))
	used := make(map[string]bool, len(raws))
	for i, raw := range raws {
		doc, ok := n.Normalize(raw)
		if !ok {
			skipped++
			continue
		}
		if doc.ID == "" {
			doc.ID = fmt.Sprintf("doc-%d", i+1)
		}
		doc.ID = uniqueID(doc.ID, used)
		used[doc.ID] = true
		docs = append(docs, doc)
	}
	return docs, skipped
}

func uniqueID(id string, used map[string]bool) string {
	if !used[id] {
		return id
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", id, n)
		if !used[candidate] {
			return candidate
		}
	}
}

func (n *Normalizer) certificate(f fields, doc models.NormalizedDocument) *models.CertificateFields {
	c := &models.CertificateFields{
		State:          f.str(stateKeys),
		ExpeditionDate: doc.Date,
		ExpirationDate: f.date(certExpirationKeys),
		OwnerRFC:       rfc(f, certOwnerRFC),
		OwnerName:      f.str(certOwnerName),
		Plate:          plate(f),
		PlatesDate:     f.date(certPlatesDateKeys),
	}
	if c.ExpirationDate != nil {
		c.ExpirationSource = models.Ptr(models.ExpirationFromDocument)
		return c
	}
	facts := vigencia.Facts{
		State:      models.Str(c.State),
		Expedition: c.ExpeditionDate,
		PlatesDate: c.PlatesDate,
	}
	if doc.Vehicle != nil {
		facts.VehicleYear = doc.Vehicle.Year
	}
	if exp := n.engine.Expiration(facts); exp != nil {
		c.ExpirationDate = exp
		c.ExpirationSource = models.Ptr(models.ExpirationComputed)
	}
	return c
}

func parseCreatedAt(s string) *time.Time {
	return fields{"created_at": s}.timestamp([]string{"created_at"})
}

func rfc(f fields, keys []string) *string {
	s := f.str(keys)
	if s == nil {
		return nil
	}
	if r := models.NormalizeRFC(*s); r != "" {
		return &r
	}
	return nil
}

func vin(f fields) *string {
	s := f.str(vinKeys)
	if s == nil {
		return nil
	}
	if v := models.NormalizeVIN(*s); v != "" {
		return &v
	}
	return nil
}

func folio(f fields, keys []string) *string {
	s := f.str(keys)
	if s == nil {
		return nil
	}
	if v := xstrings.Compact(*s); v != "" {
		return &v
	}
	return nil
}

func plate(f fields) *string {
	return folio(f, plateKeys)
}

func vehicle(f fields) *models.Vehicle {
	v := &models.Vehicle{
		Brand: upper(f.str(brandKeys)),
		Model: upper(f.str(modelKeys)),
		Year:  f.year(yearKeys),
	}
	// Mexican invoices often print the model year under "modelo".
	if v.Model != nil && v.Year == nil {
		if y := f.year([]string{"modelo"}); y != nil && len(*v.Model) == 4 {
			v.Year, v.Model = y, nil
		}
	}
	if v.Brand == nil && v.Model == nil && v.Year == nil {
		return nil
	}
	return v
}

func upper(s *string) *string {
	if s == nil {
		return nil
	}
	u := xstrings.Fold(*s)
	if u == "" {
		return nil
	}
	return &u
}

func condition(f fields) *string {
	s := f.str(conditionKeys)
	if s == nil {
		return nil
	}
	switch xstrings.Fold(*s) {
	case "NUEVO", "NUEVA", "NEW", "N":
		return models.Ptr(models.ConditionNew)
	case "USADO", "USADA", "USED", "SEMINUEVO", "SEMINUEVA", "U":
		return models.Ptr(models.ConditionUsed)
	default:
		return nil
	}
}
