package vigencia

import (
	"sort"
	"strings"
	"time"

	"expediente/pkg/platform/dates"
	xstrings "expediente/pkg/platform/strings"
)

// State is the canonical jurisdiction key: folded, upper-case, no accents.
type State string

const (
	Aguascalientes    State = "AGUASCALIENTES"
	BajaCalifornia    State = "BAJA CALIFORNIA"
	BajaCaliforniaSur State = "BAJA CALIFORNIA SUR"
	Campeche          State = "CAMPECHE"
	Chiapas           State = "CHIAPAS"
	Chihuahua         State = "CHIHUAHUA"
	CiudadDeMexico    State = "CIUDAD DE MEXICO"
	Coahuila          State = "COAHUILA"
	Colima            State = "COLIMA"
	Durango           State = "DURANGO"
	EstadoDeMexico    State = "ESTADO DE MEXICO"
	Guanajuato        State = "GUANAJUATO"
	Guerrero          State = "GUERRERO"
	Hidalgo           State = "HIDALGO"
	Jalisco           State = "JALISCO"
	Michoacan         State = "MICHOACAN"
	Morelos           State = "MORELOS"
	Nayarit           State = "NAYARIT"
	NuevoLeon         State = "NUEVO LEON"
	Oaxaca            State = "OAXACA"
	Puebla            State = "PUEBLA"
	Queretaro         State = "QUERETARO"
	QuintanaRoo       State = "QUINTANA ROO"
	SanLuisPotosi     State = "SAN LUIS POTOSI"
	Sinaloa           State = "SINALOA"
	Sonora            State = "SONORA"
	Tabasco           State = "TABASCO"
	Tamaulipas        State = "TAMAULIPAS"
	Tlaxcala          State = "TLAXCALA"
	Veracruz          State = "VERACRUZ"
	Yucatan           State = "YUCATAN"
	Zacatecas         State = "ZACATECAS"
)

// Rule is one row of the State Rules Table.
type Rule struct {
	State            State  `json:"estado"`
	Name             string `json:"nombre"`
	Model            Model  `json:"modelo"`
	Params           Params `json:"-"`
	RequiresRefrendo bool   `json:"requiere_refrendo"`
	// DocumentationGap marks jurisdictions whose rules are not fully known.
	DocumentationGap bool   `json:"hueco_documental"`
	Basis            string `json:"fundamento"`
}

const (
	biennialDays   = 730
	triennialYears = 3
)

func defaultParams(m Model) Params {
	switch m {
	case ModelBiennial:
		return Params{PeriodDays: biennialDays}
	case ModelTriennial:
		return Params{PeriodYears: triennialYears}
	default:
		return Params{}
	}
}

// DefaultRules is the State Rules Table.
func DefaultRules() []Rule {
	return []Rule{
		{State: Aguascalientes, Name: "Aguascalientes", Model: ModelAnnual, Basis: "Ley de Ingresos del Estado; refrendo anual"},
		{State: BajaCalifornia, Name: "Baja California", Model: ModelAnnual, Basis: "Ley de Ingresos; revalidación anual de tarjeta"},
		{State: BajaCaliforniaSur, Name: "Baja California Sur", Model: ModelAnnual, Basis: "Ley de Derechos y Productos; revalidación anual"},
		{State: Campeche, Name: "Campeche", Model: ModelTriennial, Params: defaultParams(ModelTriennial), DocumentationGap: true,
			Basis: "Ley de Vialidad; periodo de reemplacamiento no publicado de forma consolidada"},
		{State: Chiapas, Name: "Chiapas", Model: ModelTemporalChange, Params: Params{Change: &ModelChange{
			Cutover: dates.Date(2019, time.January, 1), Before: ModelIndefinite, After: ModelAnnual,
		}}, Basis: "Reforma a la Ley de Derechos 2019: tarjeta permanente sustituida por revalidación anual"},
		{State: Chihuahua, Name: "Chihuahua", Model: ModelAnnual, Basis: "Ley de Ingresos; revalidación vehicular anual"},
		{State: CiudadDeMexico, Name: "Ciudad de México", Model: ModelTemporalChange, Params: Params{Change: &ModelChange{
			Cutover: dates.Date(2020, time.January, 1), Before: ModelTriennial, After: ModelIndefinite,
		}}, Basis: "Código Fiscal: tarjeta trianual con chip sustituida por tarjeta permanente con refrendo"},
		{State: Coahuila, Name: "Coahuila", Model: ModelAnnual, Basis: "Ley de Hacienda; derechos de control vehicular anuales"},
		{State: Colima, Name: "Colima", Model: ModelIndefinite, RequiresRefrendo: true, Basis: "Ley de Hacienda; tarjeta permanente con refrendo anual"},
		{State: Durango, Name: "Durango", Model: ModelAnnual, Basis: "Ley de Hacienda; revalidación anual"},
		{State: EstadoDeMexico, Name: "Estado de México", Model: ModelIndefinite, RequiresRefrendo: true,
			Basis: "Código Financiero; tarjeta sin vigencia impresa, refrendo anual"},
		{State: Guanajuato, Name: "Guanajuato", Model: ModelIndefinite, RequiresRefrendo: true, Basis: "Ley de Ingresos; tarjeta permanente con refrendo"},
		{State: Guerrero, Name: "Guerrero", Model: ModelBiennial, Params: defaultParams(ModelBiennial), Basis: "Ley de Hacienda; tarjeta bianual"},
		{State: Hidalgo, Name: "Hidalgo", Model: ModelTriennial, Params: defaultParams(ModelTriennial), Basis: "Ley Estatal de Derechos; canje trianual"},
		{State: Jalisco, Name: "Jalisco", Model: ModelTemporalChange, Params: Params{Change: &ModelChange{
			Cutover: dates.Date(2021, time.January, 1), Before: ModelIndefinite, After: ModelAnnual,
		}}, Basis: "Ley de Ingresos 2021: refrendo anual de tarjeta; prórrogas por decreto"},
		{State: Michoacan, Name: "Michoacán", Model: ModelAnnual, Basis: "Ley de Ingresos; refrendo anual"},
		{State: Morelos, Name: "Morelos", Model: ModelBiennial, Params: defaultParams(ModelBiennial), Basis: "Ley General de Hacienda; tarjeta bianual"},
		{State: Nayarit, Name: "Nayarit", Model: ModelAnnual, Basis: "Ley de Hacienda; revalidación anual"},
		{State: NuevoLeon, Name: "Nuevo León", Model: ModelAnnual, Basis: "Ley de Control Vehicular; refrendo anual con plazos por antigüedad"},
		{State: Oaxaca, Name: "Oaxaca", Model: ModelNoTemporal, Basis: "Ley Estatal de Derechos; tarjeta sin plazo, reemplacamiento general 2022"},
		{State: Puebla, Name: "Puebla", Model: ModelTriennial, Params: defaultParams(ModelTriennial), Basis: "Ley de Ingresos; tarjeta trianual y placas quinquenales"},
		{State: Queretaro, Name: "Querétaro", Model: ModelTemporalChange, Params: Params{Change: &ModelChange{
			Cutover: dates.Date(2020, time.January, 1), Before: ModelIndefinite, After: ModelAnnual,
		}}, Basis: "Ley de Hacienda 2020: tarjeta con vigencia anual"},
		{State: QuintanaRoo, Name: "Quintana Roo", Model: ModelTriennial, Params: defaultParams(ModelTriennial),
			Basis: "Ley de Hacienda; la vigencia la acredita el engomado anual, no la tarjeta"},
		{State: SanLuisPotosi, Name: "San Luis Potosí", Model: ModelAnnual, Basis: "Ley de Hacienda; refrendo anual"},
		{State: Sinaloa, Name: "Sinaloa", Model: ModelBiennial, Params: defaultParams(ModelBiennial), Basis: "Ley de Hacienda; tarjeta bianual"},
		{State: Sonora, Name: "Sonora", Model: ModelAnnual, Basis: "Ley de Hacienda; revalidación anual, prórroga 2020"},
		{State: Tabasco, Name: "Tabasco", Model: ModelNoTemporal, DocumentationGap: true,
			Basis: "Ley de Hacienda; clasificación de la tarjeta no resuelta en la normativa publicada"},
		{State: Tamaulipas, Name: "Tamaulipas", Model: ModelAnnual, Basis: "Ley de Hacienda; derechos vehiculares anuales"},
		{State: Tlaxcala, Name: "Tlaxcala", Model: ModelIndefinite, RequiresRefrendo: true, Basis: "Código Financiero; tarjeta permanente con refrendo"},
		{State: Veracruz, Name: "Veracruz", Model: ModelTemporalChange, Params: Params{Change: &ModelChange{
			Cutover: dates.Date(2016, time.January, 1), Before: ModelIndefinite, After: ModelAnnual,
		}}, Basis: "Código de Derechos 2016: canje anual de tarjeta"},
		{State: Yucatan, Name: "Yucatán", Model: ModelIndefinite, RequiresRefrendo: true, Basis: "Ley General de Hacienda; tarjeta permanente con refrendo"},
		{State: Zacatecas, Name: "Zacatecas", Model: ModelNoTemporal, DocumentationGap: true,
			Basis: "Ley de Hacienda; sin plazo publicado para la tarjeta"},
	}
}

// stateAliases maps folded spellings seen on documents to canonical keys.
var stateAliases = map[string]State{
	"AGS":                             Aguascalientes,
	"BC":                              BajaCalifornia,
	"BCS":                             BajaCaliforniaSur,
	"CAMP":                            Campeche,
	"CHIS":                            Chiapas,
	"CHIH":                            Chihuahua,
	"CDMX":                            CiudadDeMexico,
	"DF":                              CiudadDeMexico,
	"DISTRITO FEDERAL":                CiudadDeMexico,
	"MEXICO DF":                       CiudadDeMexico,
	"COAHUILA DE ZARAGOZA":            Coahuila,
	"COAH":                            Coahuila,
	"COL":                             Colima,
	"DGO":                             Durango,
	"EDOMEX":                          EstadoDeMexico,
	"EDO MEX":                         EstadoDeMexico,
	"MEXICO":                          EstadoDeMexico,
	"ESTADO DE MEXICO":                EstadoDeMexico,
	"GTO":                             Guanajuato,
	"GRO":                             Guerrero,
	"HGO":                             Hidalgo,
	"JAL":                             Jalisco,
	"MICHOACAN DE OCAMPO":             Michoacan,
	"MICH":                            Michoacan,
	"MOR":                             Morelos,
	"NAY":                             Nayarit,
	"NL":                              NuevoLeon,
	"OAX":                             Oaxaca,
	"PUE":                             Puebla,
	"QRO":                             Queretaro,
	"QUERETARO DE ARTEAGA":            Queretaro,
	"QROO":                            QuintanaRoo,
	"Q ROO":                           QuintanaRoo,
	"SLP":                             SanLuisPotosi,
	"SIN":                             Sinaloa,
	"SON":                             Sonora,
	"TAB":                             Tabasco,
	"TAMPS":                           Tamaulipas,
	"TLAX":                            Tlaxcala,
	"VER":                             Veracruz,
	"VERACRUZ DE IGNACIO DE LA LLAVE": Veracruz,
	"VERACRUZ LLAVE":                  Veracruz,
	"YUC":                             Yucatan,
	"ZAC":                             Zacatecas,
}

// ResolveState folds a free-text jurisdiction name to its canonical key.
func ResolveState(name string) (State, bool) {
	key := xstrings.Fold(name)
	if key == "" {
		return "", false
	}
	if s, ok := stateAliases[key]; ok {
		return s, true
	}
	for _, r := range DefaultRules() {
		if string(r.State) == key {
			return r.State, true
		}
	}
	if rest, found := strings.CutPrefix(key, "ESTADO DE "); found {
		return ResolveState(rest)
	}
	return "", false
}

// SortedRules returns rules ordered by state key.
func SortedRules(rules []Rule) []Rule {
	out := append([]Rule(nil), rules...)
	sort.Slice(out, func(i, j int) bool { return out[i].State < out[j].State })
	return out
}
