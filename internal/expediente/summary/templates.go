package summary

import "expediente/internal/expediente/models"

const (
	topicExpired      = "expired_certificates"
	topicCurrentOwner = "current_owner_without_certificate"
	topicClean        = "no_findings"
)

// templates are keyed by gap kind or inconsistency type; {n} is the count.
var templates = map[string]string{
	string(models.GapSequence): "Solicitar los documentos de transferencia faltantes: {n} ruptura(s) en la secuencia de propietarios.",
	string(models.GapOrphan):   "Aclarar {n} documento(s) que no se integran a la cadena de propiedad.",
	string(models.GapCoverage): "Acreditar tarjeta de circulación vigente para {n} periodo(s) de propiedad sin cobertura.",

	string(models.GapPatternPingPong):       "Investigar {n} intercambio(s) repetidos entre las mismas partes.",
	string(models.GapPatternTriangulation):  "Investigar {n} triangulación(es) rápidas que regresan el vehículo a su punto de partida.",
	string(models.GapPatternEndorsementRun): "Verificar {n} serie(s) largas de endosos consecutivos.",
	string(models.GapPatternFrequentActor):  "Revisar la participación de {n} actor(es) con actividad inusualmente frecuente.",
	string(models.GapPatternComplexCycle):   "Investigar {n} ciclo(s) de retorno seguido de venta a un tercero.",

	string(models.GapTemporalBackwardJump): "Verificar {n} documento(s) con fecha anterior al eslabón previo.",
	string(models.GapTemporalSameDay):      "Verificar {n} día(s) con múltiples transferencias.",
	string(models.GapTemporalLongGap):      "Documentar {n} periodo(s) prolongados sin movimientos.",

	string(models.GapDuplicateNumber):    "Descartar {n} folio(s) duplicados en documentos del mismo tipo.",
	string(models.GapDuplicateCrossKind): "Revisar {n} folio(s) compartidos entre documentos de distinto tipo.",
	string(models.GapDuplicateRFCPair):   "Revisar {n} par(es) de RFC con transferencias repetidas.",

	string(models.GapIntegrityInvalidRFC):      "Corregir {n} RFC con formato inválido.",
	string(models.GapIntegrityMissingRFC):      "Completar {n} RFC faltantes en documentos de transferencia.",
	string(models.GapIntegrityImpossibleDate):  "Corregir {n} fecha(s) imposibles.",
	string(models.GapIntegrityMultipleOrigins): "Determinar cuál de las facturas de origen es la legítima ({n} hallazgo(s)).",
	string(models.GapIntegrityOrphanReinvoice): "Obtener la factura que da origen a {n} refacturación(es) sin antecedente.",

	string(models.InconsistencyNameMismatch):          "Confirmar la identidad del titular en {n} tarjeta(s) cuyo nombre no coincide con la factura.",
	string(models.InconsistencyVINMismatch):           "Inspeccionar físicamente el VIN: {n} documento(s) no coinciden.",
	string(models.InconsistencyExpeditionBeforeOwner): "Revisar {n} tarjeta(s) expedidas antes de la adquisición.",
	string(models.InconsistencyExpeditionAfterOwner):  "Revisar {n} tarjeta(s) expedidas después de la transferencia.",
	string(models.InconsistencyRFCOutsideChain):       "Obtener los documentos que vinculan a {n} titular(es) de tarjeta ajenos a la cadena.",

	topicExpired:      "Renovar o refrendar {n} tarjeta(s) de circulación vencida(s).",
	topicCurrentOwner: "El propietario actual no cuenta con tarjeta de circulación vigente; solicitar su expedición.",
	topicClean:        "Sin hallazgos: el expediente es consistente.",
}
