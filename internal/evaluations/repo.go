package evaluations

import (
	"context"
	"errors"

	"github.com/2beens/trainingkarte/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrEvaluationNotFound = errors.New("evaluation not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) Add(ctx context.Context, evaluation Evaluation) (_ *Evaluation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.evaluations.add")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`INSERT INTO user_training_result
				(user_id, training_id, date, achievement_level, comment, created_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id;`,
		evaluation.UserID, evaluation.TrainingID, evaluation.Date,
		evaluation.AchievementLevel, evaluation.Comment, evaluation.CreatedAt,
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

	span.SetAttributes(attribute.Int("evaluation.id", id))

	evaluation.ID = id
	return &evaluation, nil
}

func (r *Repo) Update(ctx context.Context, evaluation *Evaluation) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.evaluations.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", evaluation.ID))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE user_training_result
			SET date = $1, achievement_level = $2, comment = $3
			WHERE id = $4;`,
		evaluation.Date, evaluation.AchievementLevel, evaluation.Comment, evaluation.ID,
	)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return ErrEvaluationNotFound
	}

	return nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Evaluation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.evaluations.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, training_id, date, achievement_level, comment, created_at
			FROM user_training_result
			WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	evals, err := r.rows2evaluations(rows)
	if err != nil {
		return nil, err
	}

	if len(evals) != 1 {
		return nil, ErrEvaluationNotFound
	}

	return &evals[0], nil
}

func (r *Repo) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.evaluations.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("id", id))

	tag, err := r.db.Exec(
		ctx,
		`DELETE FROM user_training_result WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEvaluationNotFound
	}
	return nil
}

// ListForUser returns the full evaluation history of a user, most
// recent first.
func (r *Repo) ListForUser(ctx context.Context, userID string) (_ []Evaluation, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.evaluations.listforuser")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_id, training_id, date, achievement_level, comment, created_at
			FROM user_training_result
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

	return r.rows2evaluations(rows)
}

func (r *Repo) rows2evaluations(rows pgx.Rows) ([]Evaluation, error) {
	var evals []Evaluation
	for rows.Next() {
		var e Evaluation
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.TrainingID, &e.Date,
			&e.AchievementLevel, &e.Comment, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		evals = append(evals, e)
	}
	return evals, nil
}
