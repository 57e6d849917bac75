package models

// Severity ranks a finding.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Rank orders severities; higher is worse.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

// GapKind names a detected discontinuity. Families share a prefix:
// pattern_*, temporal_*, duplicate_*, integrity_*.
type GapKind string

const (
	GapSequence GapKind = "sequence_gap"
	GapOrphan   GapKind = "orphan_document"
	GapCoverage GapKind = "coverage_gap"

	GapPatternPingPong       GapKind = "pattern_ping_pong"
	GapPatternTriangulation  GapKind = "pattern_rapid_triangulation"
	GapPatternEndorsementRun GapKind = "pattern_long_endorsement_run"
	GapPatternFrequentActor  GapKind = "pattern_frequent_actor"
	GapPatternComplexCycle   GapKind = "pattern_complex_cycle"

	GapTemporalBackwardJump GapKind = "temporal_backward_jump"
	GapTemporalSameDay      GapKind = "temporal_same_day_cluster"
	GapTemporalLongGap      GapKind = "temporal_long_gap"

	GapDuplicateNumber    GapKind = "duplicate_document_number"
	GapDuplicateCrossKind GapKind = "duplicate_cross_kind_number"
	GapDuplicateRFCPair   GapKind = "duplicate_rfc_pair"

	GapIntegrityInvalidRFC      GapKind = "integrity_invalid_rfc"
	GapIntegrityMissingRFC      GapKind = "integrity_missing_rfc"
	GapIntegrityImpossibleDate  GapKind = "integrity_impossible_date"
	GapIntegrityMultipleOrigins GapKind = "integrity_multiple_origins"
	GapIntegrityOrphanReinvoice GapKind = "integrity_orphan_reinvoice"
)

// Coverage gap codes.
const (
	CodeOwnerWithoutCertificate = "PROPIETARIO_SIN_TARJETA_VIGENTE"
)

// Gap is an append-only finding; it never mutates the chain it describes.
type Gap struct {
	Kind        GapKind  `json:"type"`
	Code        string   `json:"code,omitempty"`
	Severity    Severity `json:"severity"`
	DocumentIDs []string `json:"documentIds"`
	RFCs        []string `json:"rfcs,omitempty"`
	Description string   `json:"description"`
}

// InconsistencyType names a cross-validation finding.
type InconsistencyType string

const (
	InconsistencyNameMismatch          InconsistencyType = "NOMBRE_NO_COINCIDE"
	InconsistencyVINMismatch           InconsistencyType = "VIN_INCONSISTENTE"
	InconsistencyExpeditionBeforeOwner InconsistencyType = "EXPEDICION_ANTES_DE_ADQUISICION"
	InconsistencyExpeditionAfterOwner  InconsistencyType = "EXPEDICION_DESPUES_DE_TRANSFERENCIA"
	InconsistencyRFCOutsideChain       InconsistencyType = "RFC_TARJETA_FUERA_DE_CADENA"
)

// Inconsistency is a cross-document contradiction between the chain and the
// certificates.
type Inconsistency struct {
	Type        InconsistencyType `json:"type"`
	Severity    Severity          `json:"severity"`
	RFC         string            `json:"rfc,omitempty"`
	DocumentIDs []string          `json:"documentIds"`
	Days        *int              `json:"days"`
	Similarity  *float64          `json:"similarity,omitempty"`
	Description string            `json:"description"`
}
