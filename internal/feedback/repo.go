package feedback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/trainingkarte/internal/telemetry/tracing"
	"github.com/2beens/trainingkarte/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrResultNotFound  = errors.New("training result not found")
)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// Add inserts a new message. The message timestamp is assigned here, at
// insert time, so ordering within a thread follows insert order.
func (r *Repo) Add(ctx context.Context, message Message) (_ *Message, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.feedback.add")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	message.CreatedAt = time.Now()
	err = tx.QueryRow(ctx, `
		INSERT INTO feedback_message
			(user_training_result_id, sender_id, sender_type, message, message_type, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id;`,
		message.UserTrainingResultID, message.SenderID, message.SenderType,
		message.Message, message.MessageType, message.CreatedAt,
	).Scan(&message.ID)
	if err != nil {
		if pkg.IsForeignKeyViolationError(err) {
			return nil, ErrResultNotFound
		}
		return nil, err
	}

	span.SetAttributes(attribute.Int("message.id", message.ID))

	return &message, nil
}

// ListForResult returns the full thread of an evaluation, oldest first.
func (r *Repo) ListForResult(ctx context.Context, resultID int) (_ []Message, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.feedback.listforresult")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("result.id", resultID))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, user_training_result_id, sender_id, sender_type, message, message_type, created_at, read_at, read_by
			FROM feedback_message
			WHERE user_training_result_id = $1
			ORDER BY created_at ASC, id ASC;`,
		resultID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return r.rows2messages(rows)
}

// MarkRead marks a single message as read, if it is still unread and
// was sent by the other side. An already read message keeps its
// original read_at, calling this twice is a no-op. Returns the number
// of updated rows, 0 or 1.
func (r *Repo) MarkRead(
	ctx context.Context,
	messageID int,
	reader SenderType,
	readerID string,
	readAt time.Time,
) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.feedback.markread")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("message.id", messageID))
	span.SetAttributes(attribute.String("reader", string(reader)))

	tag, err := r.db.Exec(
		ctx,
		`UPDATE feedback_message
			SET read_at = $1, read_by = $2
			WHERE id = $3
				AND sender_type = $4
				AND read_at IS NULL;`,
		readAt, readerID, messageID, reader.Opposite(),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// CountUnreadForUser counts unread messages addressed to the reader
// across all evaluations of a user.
func (r *Repo) CountUnreadForUser(ctx context.Context, userID string, reader SenderType) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.feedback.countunread")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("user_id", userID))
	span.SetAttributes(attribute.String("reader", string(reader)))

	var count int
	err = r.db.QueryRow(
		ctx,
		`SELECT COUNT(*)
			FROM feedback_message fm
			JOIN user_training_result utr ON fm.user_training_result_id = utr.id
			WHERE utr.user_id = $1
				AND fm.sender_type = $2
				AND fm.read_at IS NULL;`,
		userID, reader.Opposite(),
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *Repo) rows2messages(rows pgx.Rows) ([]Message, error) {
	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(
			&m.ID, &m.UserTrainingResultID, &m.SenderID, &m.SenderType,
			&m.Message, &m.MessageType, &m.CreatedAt, &m.ReadAt, &m.ReadBy,
		); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, nil
}
