package ingest

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"
)

//go:embed sql/upsert-station.sql
var upsertStationSQL string

//go:embed sql/insert-reading.sql
var insertReadingSQL string

//go:embed sql/get-latest-readings.sql
var getLatestReadingsSQL string

//go:embed sql/get-stations.sql
var getStationsSQL string

type Repository interface {
	InsertReading(ctx context.Context, rec Reading) error
	GetLatestReadings(ctx context.Context, stationID string, limit int) ([]Reading, error)
	GetStations(ctx context.Context) ([]Station, error)
}

type repositoryImpl struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repositoryImpl{db: db}
}

// InsertReading stores rec and refreshes its station's last-seen health in one
// transaction.
func (r *repositoryImpl) InsertReading(ctx context.Context, rec Reading) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	received := formatTime(rec.ReceivedAt)
	if _, err := tx.ExecContext(ctx, upsertStationSQL,
		rec.StationID, received, boolInt(rec.ClimateOK), boolInt(rec.AirOK),
	); err != nil {
		return fmt.Errorf("upsert station %q: %w", rec.StationID, err)
	}

	var seq sql.NullInt64
	if rec.Sequence != nil {
		seq = sql.NullInt64{Int64: int64(*rec.Sequence), Valid: true}
	}
	var captured sql.NullString
	if rec.CapturedAt != nil {
		captured = sql.NullString{String: formatTime(*rec.CapturedAt), Valid: true}
	}

	if _, err := tx.ExecContext(ctx, insertReadingSQL,
		rec.ID, rec.StationID, seq, received, captured, rec.Format,
		rec.Temperature, rec.Humidity, rec.HeatIndex, rec.ECO2, rec.TVOC, rec.AQI,
		boolInt(rec.ClimateOK), boolInt(rec.AirOK),
	); err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return tx.Commit()
}

func (r *repositoryImpl) GetLatestReadings(ctx context.Context, stationID string, limit int) ([]Reading, error) {
	rows, err := r.db.QueryContext(ctx, getLatestReadingsSQL, stationID, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close latest readings rows", "error", err)
		}
	}()

	out := []Reading{}
	for rows.Next() {
		var (
			rec      Reading
			seq      sql.NullInt64
			received string
			captured sql.NullString
		)
		if err := rows.Scan(
			&rec.ID, &rec.StationID, &seq, &received, &captured, &rec.Format,
			&rec.Temperature, &rec.Humidity, &rec.HeatIndex, &rec.ECO2, &rec.TVOC, &rec.AQI,
			&rec.ClimateOK, &rec.AirOK,
		); err != nil {
			return nil, err
		}
		if rec.ReceivedAt, err = parseTime(received); err != nil {
			return nil, err
		}
		if seq.Valid {
			v := uint64(seq.Int64)
			rec.Sequence = &v
		}
		if captured.Valid {
			t, err := parseTime(captured.String)
			if err != nil {
				return nil, err
			}
			rec.CapturedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *repositoryImpl) GetStations(ctx context.Context) ([]Station, error) {
	rows, err := r.db.QueryContext(ctx, getStationsSQL)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("close stations rows", "error", err)
		}
	}()

	out := []Station{}
	for rows.Next() {
		var (
			s                   Station
			firstSeen, lastSeen string
			climateOK, airOK    sql.NullBool
		)
		if err := rows.Scan(&s.ID, &firstSeen, &lastSeen, &climateOK, &airOK); err != nil {
			return nil, err
		}
		if s.FirstSeen, err = parseTime(firstSeen); err != nil {
			return nil, err
		}
		if s.LastSeen, err = parseTime(lastSeen); err != nil {
			return nil, err
		}
		if climateOK.Valid {
			s.ClimateOK = &climateOK.Bool
		}
		if airOK.Valid {
			s.AirOK = &airOK.Bool
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
