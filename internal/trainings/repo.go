package trainings

import (
	"context"
	"errors"

	"github.com/2beens/trainingkarte/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrTrainingNotFound = errors.New("training not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, training Training) (_ *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO training (title, description, training_type)
			VALUES ($1, $2, $3)
			RETURNING id;`,
		training.Title, training.Description, training.TrainingType,
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

	span.SetAttributes(attribute.Int("training.id", id))

	training.ID = id
	return &training, nil
}

func (r *Repo) Update(ctx context.Context, training *Training) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", training.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE training SET title = $1, description = $2, training_type = $3 WHERE id = $4;`,
		training.Title, training.Description, training.TrainingType, training.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrTrainingNotFound
	}

	return nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM training WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTrainingNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, description, training_type FROM training WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	trainingsList, err := r.rows2trainings(rows)
	if err != nil {
		return nil, err
	}

	if len(trainingsList) != 1 {
		return nil, ErrTrainingNotFound
	}

	return &trainingsList[0], nil
}

// ListAll returns the whole training catalog, ordered by type and id.
func (r *Repo) ListAll(ctx context.Context) (_ []Training, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.trainings.listall")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, title, description, training_type FROM training ORDER BY training_type, id;`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2trainings(rows)
}

func (r *Repo) rows2trainings(rows pgx.Rows) ([]Training, error) {
	var trainingsList []Training
	for rows.Next() {
		var t Training
		if err := rows.Scan(&t.ID, &t.Title, &t.Description, &t.TrainingType); err != nil {
			return nil, err
		}
		trainingsList = append(trainingsList, t)
	}
	return trainingsList, nil
}
