package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"VolTune/internal/domain/models"
	"VolTune/internal/domain/repository"
	"VolTune/pkg/util"
)

// ClickHousePanelStore loads the firm-month panel from ClickHouse. The panel
// table carries one row per (entity, month) with an entity ID, a timestamp, a
// binary label and Float64 feature columns. Feature columns are discovered
// from system.columns once and cached, so adding a feature upstream needs no
// code change here.
type ClickHousePanelStore struct {
	db       *sql.DB
	database string
	table    string

	features []string // discovered feature column names, load order
}

// NewClickHousePanelStore creates the panel store.
func NewClickHousePanelStore(db *sql.DB, database, table string) repository.DatasetStore {
	return &ClickHousePanelStore{db: db, database: database, table: table}
}

// reserved column names that are never features
const (
	colEntity = "entity"
	colTs     = "ts"
	colLabel  = "label"
)

func (s *ClickHousePanelStore) featureColumns(ctx context.Context) ([]string, error) {
	if s.features != nil {
		return s.features, nil
	}
	q := `SELECT name FROM system.columns
		WHERE database = ? AND table = ? AND type IN ('Float64', 'Float32')
		ORDER BY position`
	rows, err := s.db.QueryContext(ctx, q, s.database, s.table)
	if err != nil {
		return nil, fmt.Errorf("discover feature columns: %w", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if name == colEntity || name == colTs || name == colLabel {
			continue
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("panel table %s.%s has no feature columns", s.database, s.table)
	}
	s.features = cols
	return cols, nil
}

// LoadPanel loads the panel between from and to, sorted ascending by timestamp
// then entity. Rows arrive fully typed and without missing values: the
// upstream feature pipeline owns cleaning.
func (s *ClickHousePanelStore) LoadPanel(ctx context.Context, from, to time.Time) (*models.Dataset, error) {
	features, err := s.featureColumns(ctx)
	if err != nil {
		return nil, err
	}
	from, to = util.AlignMonthRange(from, to)

	q := fmt.Sprintf(
		"SELECT %s, %s, %s, %s FROM %s WHERE %s >= ? AND %s <= ? ORDER BY %s, %s",
		colEntity, colTs, colLabel, strings.Join(features, ", "),
		s.table, colTs, colTs, colTs, colEntity,
	)
	rows, err := s.db.QueryContext(ctx, q, from, to)
	if err != nil {
		return nil, fmt.Errorf("query panel: %w", err)
	}
	defer rows.Close()

	ds := &models.Dataset{FeatureNames: features}
	vals := make([]float64, len(features))
	dest := make([]interface{}, 0, len(features)+3)
	for rows.Next() {
		var obs models.Observation
		dest = dest[:0]
		dest = append(dest, &obs.Entity, &obs.Ts, &obs.Label)
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan panel row: %w", err)
		}
		obs.Features = make([]float64, len(vals))
		copy(obs.Features, vals)
		ds.Rows = append(ds.Rows, obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("panel %s empty between %s and %s",
			s.table, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return ds, nil
}

func (s *ClickHousePanelStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHousePanelStore) Close() error {
	return nil // pool owned by pkg/clickhouse
}
