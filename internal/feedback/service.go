package feedback

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainingkarte/internal/telemetry/metrics"
	"github.com/2beens/trainingkarte/internal/telemetry/tracing"
)

const (
	unreadCacheKeyPrefix = "karte-service-unread||"
	// the clients poll the unread count every 30 seconds, caching it for
	// half of that keeps the count fresh enough
	unreadCacheTTL = 15 * time.Second

	// a gap longer than this between consecutive messages gets a
	// separator in the thread view
	daySeparatorGap = 5 * time.Minute
)

var ErrEmptyMessage = errors.New("empty message")

type feedbackRepo interface {
	Add(ctx context.Context, message Message) (*Message, error)
	ListForResult(ctx context.Context, resultID int) ([]Message, error)
	MarkRead(ctx context.Context, messageID int, reader SenderType, readerID string, readAt time.Time) (int, error)
	CountUnreadForUser(ctx context.Context, userID string, reader SenderType) (int, error)
}

// ThreadMessage is a message decorated with the rendering hints of the
// thread view. The hints are computed at listing time, they are not
// stored.
type ThreadMessage struct {
	Message
	// DaySeparator marks a message coming after a pause, the thread
	// view renders a timestamp separator above it
	DaySeparator bool `json:"day_separator"`
	// StartOfGroup marks the first message of a sender run
	StartOfGroup bool `json:"start_of_group"`
}

type Thread struct {
	UserTrainingResultID int             `json:"user_training_result_id"`
	Messages             []ThreadMessage `json:"messages"`
	Total                int             `json:"total"`
}

type Service struct {
	repo           feedbackRepo
	redisClient    *redis.Client
	metricsManager *metrics.Manager
}

func NewService(
	repo feedbackRepo,
	redisClient *redis.Client,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		repo:           repo,
		redisClient:    redisClient,
		metricsManager: metricsManager,
	}
}

// Send validates and stores a new feedback message.
func (s *Service) Send(ctx context.Context, message Message) (_ *Message, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "feedback.send")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if strings.TrimSpace(message.Message) == "" {
		return nil, ErrEmptyMessage
	}
	if !message.SenderType.Valid() {
		return nil, fmt.Errorf("invalid sender type: %s", message.SenderType)
	}
	if message.MessageType == "" {
		message.MessageType = MessageTypeText
	}
	if !message.MessageType.Valid() {
		return nil, fmt.Errorf("invalid message type: %s", message.MessageType)
	}

	// a fresh message is unread by definition
	message.ReadAt = nil
	message.ReadBy = nil

	added, err := s.repo.Add(ctx, message)
	if err != nil {
		return nil, err
	}

	s.metricsManager.CounterFeedbackMessages.Inc()

	return added, nil
}

// Thread returns the full message thread of an evaluation, oldest
// first, with the day separator and sender group hints set.
func (s *Service) Thread(ctx context.Context, resultID int) (_ *Thread, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "feedback.thread")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	messages, err := s.repo.ListForResult(ctx, resultID)
	if err != nil {
		return nil, err
	}

	return buildThread(resultID, messages), nil
}

// MarkRead marks a single message sent by the other side as read by
// the reader. Returns 1 when the message was updated, 0 when it was
// already read or was sent by the reader side, repeated calls change
// nothing.
func (s *Service) MarkRead(ctx context.Context, messageID int, reader SenderType, readerID string) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "feedback.markread")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !reader.Valid() {
		return 0, fmt.Errorf("invalid reader type: %s", reader)
	}

	return s.repo.MarkRead(ctx, messageID, reader, readerID, time.Now())
}

// CountUnread returns the unread message count for the reader across
// all evaluations of a user. The count is cached in redis for a short
// while, the clients poll it frequently.
func (s *Service) CountUnread(ctx context.Context, userID string, reader SenderType) (_ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "feedback.countunread")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if !reader.Valid() {
		return 0, fmt.Errorf("invalid reader type: %s", reader)
	}

	cacheKey := fmt.Sprintf("%s%s||%s", unreadCacheKeyPrefix, userID, reader)
	if cachedCount, err := s.redisClient.Get(ctx, cacheKey).Int(); err == nil {
		return cachedCount, nil
	} else if !errors.Is(err, redis.Nil) {
		log.Errorf("failed to get unread count cache for %s: %s", userID, err)
	}

	count, err := s.repo.CountUnreadForUser(ctx, userID, reader)
	if err != nil {
		return 0, err
	}

	if err := s.redisClient.Set(ctx, cacheKey, count, unreadCacheTTL).Err(); err != nil {
		log.Errorf("failed to set unread count cache for %s: %s", userID, err)
	}

	return count, nil
}

func buildThread(resultID int, messages []Message) *Thread {
	thread := &Thread{
		UserTrainingResultID: resultID,
		Messages:             []ThreadMessage{},
		Total:                len(messages),
	}

	for i, m := range messages {
		tm := ThreadMessage{Message: m}
		if i == 0 {
			tm.DaySeparator = true
			tm.StartOfGroup = true
		} else {
			prev := messages[i-1]
			tm.DaySeparator = m.CreatedAt.Sub(prev.CreatedAt) > daySeparatorGap
			tm.StartOfGroup = tm.DaySeparator || m.SenderType != prev.SenderType
		}
		thread.Messages = append(thread.Messages, tm)
	}

	return thread
}
