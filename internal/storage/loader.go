package storage

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/mikebarrdiaz/redistour/internal/domain"
)

// The loaders read the JSON exports of the source spreadsheets. Column
// names arrive in the source's Spanish spelling, with inconsistent accents
// and casing; they are folded the same way zone keys are before matching
// against the alias table below.

const (
	colZone  = "zona_turistica"
	colYear  = "ano"
	colMonth = "mes"
)

// columnAliases maps folded source column names to catalog attribute names.
var columnAliases = map[string]string{
	"tipo_ubicacion":                  domain.AttrLocationType,
	"clima_koppen":                    domain.AttrKoppenClimate,
	"estacionalidad_climatica":        domain.AttrSeasonality,
	"nivel_infraestructura_turistica": domain.AttrInfrastructure,
	"aeropuerto_mas_cercano":          domain.AttrNearestAirport,
	"tipo_turismo_principal":          domain.AttrTourismType,
	"actividad_principal_1":           domain.AttrPrimaryActivity1,
	"actividad_principal_2":           domain.AttrPrimaryActivity2,
	"tipo_entorno_protegido":          domain.AttrProtectedType,
	"patrimonio_cultural":             domain.AttrHeritage,
	"oferta_complementaria":           domain.AttrComplementary,

	"altitud_media_msnm":         domain.AttrAltitude,
	"distancia_al_mar_km":        domain.AttrCoastDistance,
	"indice_conectividad":        domain.AttrConnectivity,
	"distancia_aeropuerto_km":    domain.AttrAirportDistance,
	"distancia_estacion_tren_km": domain.AttrTrainDistance,
	"porcentaje_area_protegida":  domain.AttrProtectedPct,

	"actividad_naturaleza":           domain.ActivityAttr("nature"),
	"actividad_historico":            domain.ActivityAttr("history"),
	"actividad_entretenimiento":      domain.ActivityAttr("entertainment"),
	"actividad_montanismo":           domain.ActivityAttr("mountaineering"),
	"actividad_deportes_acuaticos":   domain.ActivityAttr("water_sports"),
	"actividad_gastronomia":          domain.ActivityAttr("gastronomy"),
	"actividad_cultural":             domain.ActivityAttr("cultural"),
	"actividad_ocio":                 domain.ActivityAttr("leisure"),
	"actividad_senderismo":           domain.ActivityAttr("hiking"),
	"actividad_turismo_rural":        domain.ActivityAttr("rural_tourism"),
	"actividad_astronomia":           domain.ActivityAttr("astronomy"),
	"actividad_deportes_de_invierno": domain.ActivityAttr("winter_sports"),
	"actividad_observacion_de_fauna": domain.ActivityAttr("wildlife_watching"),
	"actividad_playa":                domain.ActivityAttr("beach"),
	"actividad_cicloturismo":         domain.ActivityAttr("cycling"),
	"actividad_wellness_termalismo":  domain.ActivityAttr("wellness"),
	"actividad_compras":              domain.ActivityAttr("shopping"),
	"actividad_enoturismo":           domain.ActivityAttr("wine_tourism"),
	"actividad_negocios_mice":        domain.ActivityAttr("business_mice"),
	"actividad_religioso":            domain.ActivityAttr("religious"),
	"actividad_aventura":             domain.ActivityAttr("adventure"),
	"actividad_turismo_nautico":      domain.ActivityAttr("nautical"),
}

// occupancyColumns maps folded forecast column names to categories.
var occupancyColumns = map[string]domain.Category{
	"grado_ocupa_plazas_eoh":    domain.CategoryHotel,
	"grado_ocupa_plazas_eotr":   domain.CategoryRural,
	"grado_ocupa_plazas_eoap":   domain.CategoryApartments,
	"grado_ocupa_parcelas_eoac": domain.CategoryCamping,
}

// travelerColumns maps folded traveler-count column names to categories.
var travelerColumns = map[string]domain.Category{
	"viajeros_eoh":  domain.CategoryHotel,
	"viajeros_eotr": domain.CategoryRural,
	"viajeros_eoap": domain.CategoryApartments,
	"viajeros_eoac": domain.CategoryCamping,
}

// foldColumn canonicalizes a source column name: diacritics folded, cased
// down, whitespace collapsed to underscores.
func foldColumn(name string) string {
	s := strings.ToLower(domain.NormalizeKey(name))
	return strings.ReplaceAll(s, " ", "_")
}

func readRows(path string) ([]map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var raw []map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", path, err)
	}

	rows := make([]map[string]any, len(raw))
	for i, r := range raw {
		row := make(map[string]any, len(r))
		for k, v := range r {
			row[foldColumn(k)] = v
		}
		rows[i] = row
	}
	return rows, nil
}

// LoadZones reads the zone reference table. Fails with
// domain.ErrMissingIdentityColumn when the identity column is absent from
// the file; any other attribute is optional and simply missing from the
// resulting Zone maps.
func LoadZones(path string) ([]domain.Zone, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if !columnPresent(rows, colZone) {
		return nil, fmt.Errorf("zones table %s: %w", path, domain.ErrMissingIdentityColumn)
	}

	zones := make([]domain.Zone, 0, len(rows))
	for _, row := range rows {
		name := toString(row[colZone])
		if name == "" {
			continue
		}
		z := domain.Zone{
			Key:         domain.NormalizeKey(name),
			Name:        strings.TrimSpace(name),
			Community:   firstString(row, "ccaa", "comunidad_autonoma"),
			Province:    toString(row["provincia"]),
			Categorical: map[string]string{},
			Numeric:     map[string]float64{},
			Activities:  map[string]bool{},
		}
		if v := toFloat(row["lat"]); v != nil {
			z.Lat = v
		}
		if v := toFloat(row["long"]); v != nil {
			z.Lon = v
		}
		for col, attr := range columnAliases {
			raw, ok := row[col]
			if !ok {
				continue
			}
			switch {
			case strings.HasPrefix(attr, "activity_"):
				if v := toFloat(raw); v != nil {
					z.Activities[attr] = *v != 0
				}
			case isNumericAttr(attr):
				if v := toFloat(raw); v != nil {
					z.Numeric[attr] = *v
				}
			default:
				z.Categorical[attr] = strings.TrimSpace(toString(raw))
			}
		}
		zones = append(zones, z)
	}
	return zones, nil
}

// LoadForecasts reads the occupancy forecast table. A table without its
// identity or period columns degrades to the empty table (the recommender
// must still work without occupancy context); the wrapped error lets the
// caller log the data problem once.
func LoadForecasts(path string) (*domain.ForecastTable, error) {
	rows, err := readRows(path)
	if err != nil {
		return &domain.ForecastTable{Available: map[domain.Category]bool{}}, err
	}

	table := &domain.ForecastTable{Available: map[domain.Category]bool{}}
	for col, cat := range occupancyColumns {
		if columnPresent(rows, col) {
			table.Available[cat] = true
		}
	}
	if !columnPresent(rows, colZone) || !columnPresent(rows, colYear) || !columnPresent(rows, colMonth) {
		return &domain.ForecastTable{Available: map[domain.Category]bool{}},
			fmt.Errorf("forecast table %s: %w", path, domain.ErrMissingIdentityColumn)
	}

	for _, row := range rows {
		key := domain.NormalizeKey(toString(row[colZone]))
		year, month := toInt(row[colYear]), toInt(row[colMonth])
		if key == "" || year == 0 || month == 0 {
			continue
		}
		rates := make(map[domain.Category]*float64)
		for col, cat := range occupancyColumns {
			if !table.Available[cat] {
				continue
			}
			rates[cat] = toFloat(row[col])
		}
		table.Rows = append(table.Rows, domain.ForecastRow{
			ZoneKey: key, Year: year, Month: month, Rates: rates,
		})
	}
	return table, nil
}

// LoadTravelers reads the historical traveler counts behind the saturation
// map and trend charts.
func LoadTravelers(path string) ([]domain.TravelerRow, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	if !columnPresent(rows, colZone) || !columnPresent(rows, colYear) || !columnPresent(rows, colMonth) {
		return nil, fmt.Errorf("travelers table %s: %w", path, domain.ErrMissingIdentityColumn)
	}

	out := make([]domain.TravelerRow, 0, len(rows))
	for _, row := range rows {
		key := domain.NormalizeKey(toString(row[colZone]))
		year, month := toInt(row[colYear]), toInt(row[colMonth])
		if key == "" || year == 0 || month == 0 {
			continue
		}
		counts := make(map[domain.Category]*float64)
		for col, cat := range travelerColumns {
			if columnPresent(rows, col) {
				counts[cat] = toFloat(row[col])
			}
		}
		out = append(out, domain.TravelerRow{ZoneKey: key, Year: year, Month: month, Counts: counts})
	}
	return out, nil
}

// LoadDescriptions reads the display-only description table into a map
// keyed by normalized zone key. First occurrence wins on duplicates.
func LoadDescriptions(path string) (map[string]string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		key := domain.NormalizeKey(toString(row[colZone]))
		if key == "" {
			continue
		}
		if _, ok := out[key]; ok {
			continue
		}
		out[key] = strings.TrimSpace(toString(row["descripcion"]))
	}
	return out, nil
}

// LoadOpinions reads the display-only opinions table, grouped by zone.
func LoadOpinions(path string) (map[string][]string, error) {
	rows, err := readRows(path)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(rows))
	for _, row := range rows {
		key := domain.NormalizeKey(toString(row[colZone]))
		opinion := strings.TrimSpace(toString(row["opinion"]))
		if key == "" || opinion == "" {
			continue
		}
		out[key] = append(out[key], opinion)
	}
	return out, nil
}

func columnPresent(rows []map[string]any, col string) bool {
	for _, r := range rows {
		if _, ok := r[col]; ok {
			return true
		}
	}
	return false
}

func isNumericAttr(attr string) bool {
	switch attr {
	case domain.AttrAltitude, domain.AttrCoastDistance, domain.AttrConnectivity,
		domain.AttrAirportDistance, domain.AttrTrainDistance, domain.AttrProtectedPct:
		return true
	}
	return false
}

func firstString(row map[string]any, cols ...string) string {
	for _, c := range cols {
		if s := toString(row[c]); s != "" {
			return s
		}
	}
	return ""
}

func toString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(s)
	}
}

// toFloat coerces a cell to a float; nil means "no data" (missing, null,
// or non-numeric), never an error.
func toFloat(v any) *float64 {
	switch n := v.(type) {
	case float64:
		return &n
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(n), 64); err == nil {
			return &f
		}
	}
	return nil
}

func toInt(v any) int {
	if f := toFloat(v); f != nil {
		return int(*f)
	}
	return 0
}
