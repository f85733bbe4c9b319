package physical

import (
	"context"
	"errors"

	"github.com/2beens/trainingkarte/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrMeasurementNotFound = errors.New("measurement not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) AddMeasurement(ctx context.Context, measurement Measurement) (_ *Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.physical.addmeasurement")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO physical_measurement
				(user_id, grade, date, long_jump_cm, fifty_meter_run_ms, spider_ms, eight_shape_run_count, ball_throw_cm)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id;`,
		measurement.UserID, measurement.Grade, measurement.Date,
		measurement.LongJumpCm, measurement.FiftyMeterRunMs, measurement.SpiderMs,
		measurement.EightShapeRunCount, measurement.BallThrowCm,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, errors.New("unexpected error [no rows next]")
	}

	var id int
	if err := rows.Scan(&id); err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("measurement.id", id))

	measurement.ID = id
	return &measurement, nil
}

func (r *Repo) DeleteMeasurement(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.physical.deletemeasurement")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM physical_measurement WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrMeasurementNotFound
	}
	return nil
}

// ListForUser returns all measurements of a user, most recent first.
func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []Measurement, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.physical.listforuser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, grade, date, long_jump_cm, fifty_meter_run_ms, spider_ms, eight_shape_run_count, ball_throw_cm
			FROM physical_measurement
			WHERE user_id = $1
			ORDER BY date DESC, id DESC;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2measurements(rows)
}

// SetReference upserts the cohort row of a (grade, type) pair.
func (r *Repo) SetReference(ctx context.Context, reference Reference) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.physical.setreference")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("grade", reference.Grade))
	span.SetAttributes(attribute.String("type", string(reference.Type)))

	_, err = r.db.Exec(
		ctx,
		`INSERT INTO physical_reference
				(grade, type, long_jump_cm, fifty_meter_run_ms, spider_ms, eight_shape_run_count, ball_throw_cm)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (grade, type)
			DO UPDATE SET
				long_jump_cm = $3, fifty_meter_run_ms = $4, spider_ms = $5,
				eight_shape_run_count = $6, ball_throw_cm = $7;`,
		reference.Grade, reference.Type,
		reference.LongJumpCm, reference.FiftyMeterRunMs, reference.SpiderMs,
		reference.EightShapeRunCount, reference.BallThrowCm,
	)
	return err
}

// GetReferences returns all cohort rows, keyed by (grade, type).
func (r *Repo) GetReferences(ctx context.Context) (_ map[RefKey]Reference, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.physical.getreferences")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT grade, type, long_jump_cm, fifty_meter_run_ms, spider_ms, eight_shape_run_count, ball_throw_cm
			FROM physical_reference;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	references := make(map[RefKey]Reference)
	for rows.Next() {
		var ref Reference
		if err := rows.Scan(
			&ref.Grade, &ref.Type,
			&ref.LongJumpCm, &ref.FiftyMeterRunMs, &ref.SpiderMs,
			&ref.EightShapeRunCount, &ref.BallThrowCm,
		); err != nil {
			return nil, err
		}
		references[RefKey{Grade: ref.Grade, Type: ref.Type}] = ref
	}
	return references, nil
}

func (r *Repo) rows2measurements(rows pgx.Rows) ([]Measurement, error) {
	var measurements []Measurement
	for rows.Next() {
		var m Measurement
		if err := rows.Scan(
			&m.ID, &m.UserID, &m.Grade, &m.Date,
			&m.LongJumpCm, &m.FiftyMeterRunMs, &m.SpiderMs,
			&m.EightShapeRunCount, &m.BallThrowCm,
		); err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, nil
}
