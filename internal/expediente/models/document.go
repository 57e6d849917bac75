// Package models holds the canonical types every stage of an expediente
// analysis exchanges: raw and normalized documents, ownership links, and
// findings.
package models

import (
	"strconv"
	"strings"
	"time"
)

// DocumentKind tags a document family.
type DocumentKind string

const (
	KindInvoice      DocumentKind = "invoice"
	KindReinvoice    DocumentKind = "reinvoice"
	KindEndorsement  DocumentKind = "endorsement"
	KindVerification DocumentKind = "verification"
	KindCertificate  DocumentKind = "vehicle_certificate"
	KindCancellation DocumentKind = "vehicle_cancellation"
	KindUnrecognized DocumentKind = "unrecognized"
)

// ParseDocumentKind maps the upstream document_type tag. Anything not
// listed is KindUnrecognized.
func ParseDocumentKind(s string) DocumentKind {
	switch DocumentKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindInvoice:
		return KindInvoice
	case KindReinvoice:
		return KindReinvoice
	case KindEndorsement:
		return KindEndorsement
	case KindVerification:
		return KindVerification
	case KindCertificate:
		return KindCertificate
	case KindCancellation:
		return KindCancellation
	default:
		return KindUnrecognized
	}
}

// IsTransfer reports whether documents of this kind move ownership.
func (k DocumentKind) IsTransfer() bool {
	return k == KindInvoice || k == KindReinvoice || k == KindEndorsement
}

// Condition values for the new/used flag on invoices.
const (
	ConditionNew  = "NEW"
	ConditionUsed = "USED"
)

// RawDocument is one OCR'd file as delivered by the upload collaborator.
type RawDocument struct {
	DocumentType string         `json:"document_type"`
	OCR          map[string]any `json:"ocr"`
	CreatedAt    string         `json:"created_at"`
	FileID       string         `json:"file_id"`
}

// Vehicle is the descriptor printed on a document.
type Vehicle struct {
	Brand *string `json:"brand"`
	Model *string `json:"model"`
	Year  *int    `json:"year"`
}

// Descriptor is a comparison key for the vehicle description; empty when
// nothing is known.
func (v *Vehicle) Descriptor() string {
	if v == nil {
		return ""
	}
	parts := []string{Str(v.Brand), Str(v.Model), ""}
	if v.Year != nil {
		parts[2] = strconv.Itoa(*v.Year)
	}
	if parts[0] == "" && parts[1] == "" && parts[2] == "" {
		return ""
	}
	return strings.Join(parts, "|")
}

// CertificateFields extend a vehicle_certificate (tarjeta de circulación).
type CertificateFields struct {
	State            *string    `json:"state"`
	ExpeditionDate   *time.Time `json:"expeditionDate"`
	ExpirationDate   *time.Time `json:"expirationDate"`
	ExpirationSource *string    `json:"expirationSource"`
	OwnerRFC         *string    `json:"ownerRfc"`
	OwnerName        *string    `json:"ownerName"`
	Plate            *string    `json:"plate"`
	PlatesDate       *time.Time `json:"platesDate"`
}

// Expiration sources recorded on CertificateFields.
const (
	ExpirationFromDocument = "document"
	ExpirationComputed     = "computed"
)

// CancellationFields extend a vehicle_cancellation (baja vehicular).
type CancellationFields struct {
	State    *string `json:"state"`
	Plate    *string `json:"plate"`
	OwnerRFC *string `json:"ownerRfc"`
	Reason   *string `json:"reason"`
}

// VerificationFields extend an emissions verification record.
type VerificationFields struct {
	State    *string `json:"state"`
	Plate    *string `json:"plate"`
	Hologram *string `json:"hologram"`
	Result   *string `json:"result"`
}

// NormalizedDocument is the canonical projection of a RawDocument.
//
// Invariants:
//   - Kind is never KindUnrecognized
//   - every field is serialized; fields that do not apply to Kind are null
//   - at most one of Certificate, Cancellation, Verification is set and it
//     matches Kind
type NormalizedDocument struct {
	ID             string              `json:"id"`
	Kind           DocumentKind        `json:"kind"`
	Date           *time.Time          `json:"date"`
	IssuedAt       *time.Time          `json:"issuedAt"`
	CreatedAt      *time.Time          `json:"createdAt"`
	EmisorRFC      *string             `json:"emisorRfc"`
	EmisorName     *string             `json:"emisorName"`
	ReceptorRFC    *string             `json:"receptorRfc"`
	ReceptorName   *string             `json:"receptorName"`
	Total          *float64            `json:"total"`
	DocumentNumber *string             `json:"documentNumber"`
	VIN            *string             `json:"vin"`
	Vehicle        *Vehicle            `json:"vehicle"`
	Condition      *string             `json:"condition"`
	Certificate    *CertificateFields  `json:"certificate"`
	Cancellation   *CancellationFields `json:"cancellation"`
	Verification   *VerificationFields `json:"verification"`
}

// Emisor returns the transferring party's RFC or "".
func (d NormalizedDocument) Emisor() string { return Str(d.EmisorRFC) }

// Receptor returns the receiving party's RFC or "".
func (d NormalizedDocument) Receptor() string { return Str(d.ReceptorRFC) }

// IsOriginCandidate reports whether d is a first-sale invoice.
func (d NormalizedDocument) IsOriginCandidate() bool {
	return d.Kind == KindInvoice && Str(d.Condition) == ConditionNew
}

// OwnerRFC is the certificate holder's RFC, or "" for other kinds.
func (d NormalizedDocument) OwnerRFC() string {
	if d.Certificate == nil {
		return ""
	}
	return Str(d.Certificate.OwnerRFC)
}

// Str dereferences an optional string.
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
