package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/goccy/go-json"
	_ "github.com/mattn/go-sqlite3"

	"github.com/mikebarrdiaz/redistour/internal/domain"
)

// SQLiteStore holds the read-only reference tables: zones, occupancy
// forecasts, and historical traveler counts. Attribute maps are stored as
// JSON blobs; the saturation and history aggregations run in SQL.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode=WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys=ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) EnsureSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS zones (
  key TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  community TEXT NOT NULL DEFAULT '',
  province TEXT NOT NULL DEFAULT '',
  description TEXT NOT NULL DEFAULT '',
  lat REAL,
  lon REAL,
  categorical_json TEXT NOT NULL DEFAULT '{}',
  numeric_json TEXT NOT NULL DEFAULT '{}',
  activities_json TEXT NOT NULL DEFAULT '{}',
  opinions_json TEXT NOT NULL DEFAULT '[]'
);

CREATE TABLE IF NOT EXISTS forecasts (
  zone_key TEXT NOT NULL,
  year INTEGER NOT NULL,
  month INTEGER NOT NULL,
  hotel REAL,
  rural REAL,
  apartments REAL,
  camping REAL,
  PRIMARY KEY (zone_key, year, month)
);

CREATE TABLE IF NOT EXISTS travelers (
  zone_key TEXT NOT NULL,
  year INTEGER NOT NULL,
  month INTEGER NOT NULL,
  hotel REAL,
  rural REAL,
  apartments REAL,
  camping REAL,
  PRIMARY KEY (zone_key, year, month)
);

CREATE TABLE IF NOT EXISTS meta (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	if _, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_travelers_period ON travelers(year, month);`); err != nil {
		return err
	}
	return nil
}

func (s *SQLiteStore) CountZones(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM zones`).Scan(&n)
	return n, err
}

// ReplaceZones rewrites the zone reference table and records its content
// fingerprint, which keys the cached similarity model.
func (s *SQLiteStore) ReplaceZones(ctx context.Context, zones []domain.Zone) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM zones`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
INSERT INTO zones
(key, name, community, province, description, lat, lon, categorical_json, numeric_json, activities_json, opinions_json)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, z := range zones {
		cat, _ := json.Marshal(z.Categorical)
		num, _ := json.Marshal(z.Numeric)
		act, _ := json.Marshal(z.Activities)
		ops, _ := json.Marshal(z.Opinions)
		if _, err := stmt.Exec(
			z.Key, z.Name, z.Community, z.Province, z.Description,
			z.Lat, z.Lon, string(cat), string(num), string(act), string(ops),
		); err != nil {
			return err
		}
	}

	fp := fingerprintZones(zones)
	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('zones_fingerprint', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, fp,
	); err != nil {
		return err
	}
	return tx.Commit()
}

// Fingerprint returns the content fingerprint of the current zone table.
// An empty store yields the empty string, which never matches a model.
func (s *SQLiteStore) Fingerprint(ctx context.Context) (string, error) {
	var fp string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'zones_fingerprint'`).Scan(&fp)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return fp, err
}

// Zones returns the full reference table in insertion order.
func (s *SQLiteStore) Zones(ctx context.Context) ([]domain.Zone, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT key, name, community, province, description, lat, lon,
       categorical_json, numeric_json, activities_json, opinions_json
FROM zones ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, rows.Err()
}

// GetZone fetches one zone by normalized key.
func (s *SQLiteStore) GetZone(ctx context.Context, key string) (domain.Zone, bool, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT key, name, community, province, description, lat, lon,
       categorical_json, numeric_json, activities_json, opinions_json
FROM zones WHERE key = ?`, key)
	z, err := scanZone(row)
	if err == sql.ErrNoRows {
		return domain.Zone{}, false, nil
	}
	if err != nil {
		return domain.Zone{}, false, err
	}
	return z, true, nil
}

// ListZones pages through the catalog with optional community/province
// substring filters.
func (s *SQLiteStore) ListZones(ctx context.Context, limit, offset int, community, province string) ([]domain.Zone, int, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 4)
	if strings.TrimSpace(community) != "" {
		where = append(where, "LOWER(community) LIKE '%' || LOWER(?) || '%'")
		args = append(args, community)
	}
	if strings.TrimSpace(province) != "" {
		where = append(where, "LOWER(province) LIKE '%' || LOWER(?) || '%'")
		args = append(args, province)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM zones "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
SELECT key, name, community, province, description, lat, lon,
       categorical_json, numeric_json, activities_json, opinions_json
FROM zones ` + whereSQL + "\nORDER BY name\nLIMIT ? OFFSET ?"
	rows, err := s.db.QueryContext(ctx, query, append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []domain.Zone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, z)
	}
	return out, total, rows.Err()
}

// ReplaceForecasts rewrites the forecast table.
func (s *SQLiteStore) ReplaceForecasts(ctx context.Context, table *domain.ForecastTable) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM forecasts`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
INSERT OR REPLACE INTO forecasts (zone_key, year, month, hotel, rural, apartments, camping)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range table.Rows {
		if _, err := stmt.Exec(
			r.ZoneKey, r.Year, r.Month,
			r.Rates[domain.CategoryHotel], r.Rates[domain.CategoryRural],
			r.Rates[domain.CategoryApartments], r.Rates[domain.CategoryCamping],
		); err != nil {
			return err
		}
	}

	available := make([]string, 0, len(table.Available))
	for cat, ok := range table.Available {
		if ok {
			available = append(available, string(cat))
		}
	}
	sort.Strings(available)
	if _, err := tx.Exec(
		`INSERT INTO meta (key, value) VALUES ('forecast_categories', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strings.Join(available, ","),
	); err != nil {
		return err
	}
	return tx.Commit()
}

// ForecastTable loads the full forecast table back out of the store.
func (s *SQLiteStore) ForecastTable(ctx context.Context) (*domain.ForecastTable, error) {
	table := &domain.ForecastTable{Available: map[domain.Category]bool{}}

	var available string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM meta WHERE key = 'forecast_categories'`).Scan(&available)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	for _, cat := range strings.Split(available, ",") {
		if cat != "" {
			table.Available[domain.Category(cat)] = true
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT zone_key, year, month, hotel, rural, apartments, camping FROM forecasts`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.ForecastRow
		var hotel, rural, apartments, camping sql.NullFloat64
		if err := rows.Scan(&r.ZoneKey, &r.Year, &r.Month, &hotel, &rural, &apartments, &camping); err != nil {
			return nil, err
		}
		r.Rates = map[domain.Category]*float64{
			domain.CategoryHotel:      nullable(hotel),
			domain.CategoryRural:      nullable(rural),
			domain.CategoryApartments: nullable(apartments),
			domain.CategoryCamping:    nullable(camping),
		}
		table.Rows = append(table.Rows, r)
	}
	return table, rows.Err()
}

// ReplaceTravelers rewrites the historical traveler counts.
func (s *SQLiteStore) ReplaceTravelers(ctx context.Context, rows []domain.TravelerRow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM travelers`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`
INSERT OR REPLACE INTO travelers (zone_key, year, month, hotel, rural, apartments, camping)
VALUES (?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.ZoneKey, r.Year, r.Month,
			r.Counts[domain.CategoryHotel], r.Counts[domain.CategoryRural],
			r.Counts[domain.CategoryApartments], r.Counts[domain.CategoryCamping],
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SaturationPoint is one zone's traveler total for a period selection,
// with the coordinates the map layer plots it at.
type SaturationPoint struct {
	Zone      string   `json:"zone"`
	Name      string   `json:"name"`
	Community string   `json:"community,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Travelers float64  `json:"travelers"`
}

// Saturation sums traveler counts per zone over the selected period and
// accommodation categories. Zero year or month means "all".
func (s *SQLiteStore) Saturation(ctx context.Context, year, month int, cats []domain.Category) ([]SaturationPoint, error) {
	cols := make([]string, 0, len(cats))
	for _, c := range cats {
		if col, ok := categoryColumn(c); ok {
			cols = append(cols, fmt.Sprintf("COALESCE(t.%s, 0)", col))
		}
	}
	if len(cols) == 0 {
		return nil, nil
	}

	where := make([]string, 0, 2)
	args := make([]any, 0, 2)
	if year > 0 {
		where = append(where, "t.year = ?")
		args = append(args, year)
	}
	if month > 0 {
		where = append(where, "t.month = ?")
		args = append(args, month)
	}
	whereSQL := ""
	if len(where) > 0 {
		whereSQL = "WHERE " + strings.Join(where, " AND ")
	}

	query := fmt.Sprintf(`
SELECT t.zone_key, COALESCE(z.name, t.zone_key), COALESCE(z.community, ''), z.lat, z.lon,
       SUM(%s) AS travelers
FROM travelers t
LEFT JOIN zones z ON z.key = t.zone_key
%s
GROUP BY t.zone_key
ORDER BY travelers DESC`, strings.Join(cols, " + "), whereSQL)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaturationPoint
	for rows.Next() {
		var p SaturationPoint
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&p.Zone, &p.Name, &p.Community, &lat, &lon, &p.Travelers); err != nil {
			return nil, err
		}
		p.Lat, p.Lon = nullable(lat), nullable(lon)
		out = append(out, p)
	}
	return out, rows.Err()
}

// HistoryPoint is one month of a zone's traveler series.
type HistoryPoint struct {
	Year      int      `json:"year"`
	Month     int      `json:"month"`
	Travelers *float64 `json:"travelers"`
}

// History returns a zone's monthly traveler series for one accommodation
// category, ordered chronologically.
func (s *SQLiteStore) History(ctx context.Context, zoneKey string, cat domain.Category) ([]HistoryPoint, error) {
	col, ok := categoryColumn(cat)
	if !ok {
		return nil, fmt.Errorf("storage: unknown category %q", cat)
	}
	query := fmt.Sprintf(
		`SELECT year, month, %s FROM travelers WHERE zone_key = ? ORDER BY year, month`, col)

	rows, err := s.db.QueryContext(ctx, query, zoneKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryPoint
	for rows.Next() {
		var p HistoryPoint
		var v sql.NullFloat64
		if err := rows.Scan(&p.Year, &p.Month, &v); err != nil {
			return nil, err
		}
		p.Travelers = nullable(v)
		out = append(out, p)
	}
	return out, rows.Err()
}

// fingerprintZones hashes the canonical serialization of the zone table.
// Any content change produces a new fingerprint and therefore a rebuilt
// similarity model on the next request.
func fingerprintZones(zones []domain.Zone) string {
	sorted := make([]domain.Zone, len(zones))
	copy(sorted, zones)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key < sorted[j].Key })

	h := sha256.New()
	enc := json.NewEncoder(h)
	for _, z := range sorted {
		_ = enc.Encode(z)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func categoryColumn(c domain.Category) (string, bool) {
	switch c {
	case domain.CategoryHotel:
		return "hotel", true
	case domain.CategoryRural:
		return "rural", true
	case domain.CategoryApartments:
		return "apartments", true
	case domain.CategoryCamping:
		return "camping", true
	}
	return "", false
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanZone(row rowScanner) (domain.Zone, error) {
	var z domain.Zone
	var lat, lon sql.NullFloat64
	var catJSON, numJSON, actJSON, opsJSON string
	if err := row.Scan(
		&z.Key, &z.Name, &z.Community, &z.Province, &z.Description,
		&lat, &lon, &catJSON, &numJSON, &actJSON, &opsJSON,
	); err != nil {
		return domain.Zone{}, err
	}
	z.Lat, z.Lon = nullable(lat), nullable(lon)
	_ = json.Unmarshal([]byte(catJSON), &z.Categorical)
	_ = json.Unmarshal([]byte(numJSON), &z.Numeric)
	_ = json.Unmarshal([]byte(actJSON), &z.Activities)
	_ = json.Unmarshal([]byte(opsJSON), &z.Opinions)
	return z, nil
}
