package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/2beens/trainingkarte/internal/telemetry/metrics"

	"github.com/go-redis/redismock/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFeedbackRepo struct {
	messages map[int]Message
	nextID   int
}

func newFakeFeedbackRepo(seed ...Message) *fakeFeedbackRepo {
	repo := &fakeFeedbackRepo{
		messages: map[int]Message{},
		nextID:   1,
	}
	for _, m := range seed {
		repo.messages[m.ID] = m
		if m.ID >= repo.nextID {
			repo.nextID = m.ID + 1
		}
	}
	return repo
}

func (f *fakeFeedbackRepo) Add(_ context.Context, message Message) (*Message, error) {
	message.ID = f.nextID
	f.nextID++
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}
	f.messages[message.ID] = message
	return &message, nil
}

func (f *fakeFeedbackRepo) ListForResult(_ context.Context, resultID int) ([]Message, error) {
	var messages []Message
	for id := 1; id < f.nextID; id++ {
		if m, ok := f.messages[id]; ok && m.UserTrainingResultID == resultID {
			messages = append(messages, m)
		}
	}
	return messages, nil
}

func (f *fakeFeedbackRepo) MarkRead(
	_ context.Context,
	messageID int,
	reader SenderType,
	readerID string,
	readAt time.Time,
) (int, error) {
	m, ok := f.messages[messageID]
	if !ok || m.ReadAt != nil || m.SenderType != reader.Opposite() {
		return 0, nil
	}
	m.ReadAt = &readAt
	m.ReadBy = &readerID
	f.messages[messageID] = m
	return 1, nil
}

func (f *fakeFeedbackRepo) CountUnreadForUser(_ context.Context, _ string, reader SenderType) (int, error) {
	count := 0
	for _, m := range f.messages {
		if m.ReadAt == nil && m.SenderType == reader.Opposite() {
			count++
		}
	}
	return count, nil
}

func newTestService(repo *fakeFeedbackRepo) (*Service, redismock.ClientMock, *metrics.Manager) {
	db, mock := redismock.NewClientMock()
	metricsManager := metrics.NewTestManager()
	return NewService(repo, db, metricsManager), mock, metricsManager
}

func TestService_Send(t *testing.T) {
	repo := newFakeFeedbackRepo()
	service, _, metricsManager := newTestService(repo)

	sent, err := service.Send(context.Background(), Message{
		UserTrainingResultID: 42,
		SenderID:             "mika",
		SenderType:           SenderTypeUser,
		Message:              "was the plank form ok?",
		MessageType:          MessageTypeQuestion,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sent.ID)
	assert.False(t, sent.CreatedAt.IsZero())
	assert.Nil(t, sent.ReadAt)
	assert.Nil(t, sent.ReadBy)

	assert.Equal(t, float64(1), testutil.ToFloat64(metricsManager.CounterFeedbackMessages))
}

func TestService_Send_defaultsToTextType(t *testing.T) {
	repo := newFakeFeedbackRepo()
	service, _, _ := newTestService(repo)

	sent, err := service.Send(context.Background(), Message{
		UserTrainingResultID: 42,
		SenderID:             "coach",
		SenderType:           SenderTypeCoach,
		Message:              "looking good",
	})
	require.NoError(t, err)
	assert.Equal(t, MessageTypeText, sent.MessageType)
}

func TestService_Send_invalid(t *testing.T) {
	repo := newFakeFeedbackRepo()
	service, _, metricsManager := newTestService(repo)

	// empty and whitespace-only messages are rejected
	_, err := service.Send(context.Background(), Message{
		SenderType: SenderTypeUser,
		Message:    "",
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = service.Send(context.Background(), Message{
		SenderType: SenderTypeUser,
		Message:    "  \n\t ",
	})
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = service.Send(context.Background(), Message{
		SenderType: "robot",
		Message:    "beep",
	})
	assert.Error(t, err)

	_, err = service.Send(context.Background(), Message{
		SenderType:  SenderTypeUser,
		Message:     "hello",
		MessageType: "carrier-pigeon",
	})
	assert.Error(t, err)

	assert.Empty(t, repo.messages)
	assert.Equal(t, float64(0), testutil.ToFloat64(metricsManager.CounterFeedbackMessages))
}

func TestService_MarkRead_singleMessage(t *testing.T) {
	at := func(minute int) time.Time {
		return time.Date(2024, 5, 1, 10, minute, 0, 0, time.UTC)
	}
	repo := newFakeFeedbackRepo(
		Message{ID: 1, UserTrainingResultID: 42, SenderType: SenderTypeUser, Message: "how was it?", CreatedAt: at(0)},
		Message{ID: 2, UserTrainingResultID: 42, SenderType: SenderTypeCoach, Message: "solid, keep going", CreatedAt: at(1)},
		Message{ID: 3, UserTrainingResultID: 42, SenderType: SenderTypeUser, Message: "thanks!", CreatedAt: at(2)},
	)
	service, mock, _ := newTestService(repo)

	ctx := context.Background()
	cacheKey := unreadCacheKeyPrefix + "mika||coach"

	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSet(cacheKey, 2, unreadCacheTTL).SetVal("OK")
	count, err := service.CountUnread(ctx, "mika", SenderTypeCoach)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// the coach reads the first user message, only that one gets
	// marked, the later user message stays unread
	updated, err := service.MarkRead(ctx, 1, SenderTypeCoach, "coach")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	firstReadAt := *repo.messages[1].ReadAt
	assert.Equal(t, "coach", *repo.messages[1].ReadBy)
	assert.Nil(t, repo.messages[3].ReadAt)

	// the unread count dropped by exactly one
	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSet(cacheKey, 1, unreadCacheTTL).SetVal("OK")
	count, err = service.CountUnread(ctx, "mika", SenderTypeCoach)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// a second read of the same message changes nothing
	updated, err = service.MarkRead(ctx, 1, SenderTypeCoach, "coach")
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Equal(t, firstReadAt, *repo.messages[1].ReadAt)

	// the coach cannot mark their own message as read
	updated, err = service.MarkRead(ctx, 2, SenderTypeCoach, "coach")
	require.NoError(t, err)
	assert.Equal(t, 0, updated)
	assert.Nil(t, repo.messages[2].ReadAt)

	// the user reads the coach reply
	updated, err = service.MarkRead(ctx, 2, SenderTypeUser, "mika")
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.Equal(t, "mika", *repo.messages[2].ReadBy)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestService_CountUnread(t *testing.T) {
	repo := newFakeFeedbackRepo(
		Message{ID: 1, UserTrainingResultID: 42, SenderType: SenderTypeCoach, Message: "nice work"},
		Message{ID: 2, UserTrainingResultID: 43, SenderType: SenderTypeCoach, Message: "try again"},
	)
	service, mock, _ := newTestService(repo)

	ctx := context.Background()
	cacheKey := unreadCacheKeyPrefix + "mika||user"

	// cache miss, count comes from the repo and gets cached
	mock.ExpectGet(cacheKey).RedisNil()
	mock.ExpectSet(cacheKey, 2, unreadCacheTTL).SetVal("OK")
	count, err := service.CountUnread(ctx, "mika", SenderTypeUser)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// cache hit, the repo is not asked again
	mock.ExpectGet(cacheKey).SetVal("2")
	count, err = service.CountUnread(ctx, "mika", SenderTypeUser)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildThread(t *testing.T) {
	at := func(day, hour, minute int) time.Time {
		return time.Date(2024, 5, day, hour, minute, 0, 0, time.UTC)
	}
	messages := []Message{
		{ID: 1, SenderType: SenderTypeUser, CreatedAt: at(1, 10, 0)},
		{ID: 2, SenderType: SenderTypeUser, CreatedAt: at(1, 10, 2)},   // same sender, close: same group
		{ID: 3, SenderType: SenderTypeUser, CreatedAt: at(1, 10, 30)},  // gap over 5 min: separator + new group
		{ID: 4, SenderType: SenderTypeCoach, CreatedAt: at(1, 10, 31)}, // sender change: new group, no separator
		{ID: 5, SenderType: SenderTypeCoach, CreatedAt: at(2, 9, 0)},   // next day: separator + new group
	}

	thread := buildThread(42, messages)
	assert.Equal(t, 42, thread.UserTrainingResultID)
	assert.Equal(t, 5, thread.Total)
	require.Len(t, thread.Messages, 5)

	assert.True(t, thread.Messages[0].DaySeparator)
	assert.True(t, thread.Messages[0].StartOfGroup)

	assert.False(t, thread.Messages[1].DaySeparator)
	assert.False(t, thread.Messages[1].StartOfGroup)

	assert.True(t, thread.Messages[2].DaySeparator)
	assert.True(t, thread.Messages[2].StartOfGroup)

	assert.False(t, thread.Messages[3].DaySeparator)
	assert.True(t, thread.Messages[3].StartOfGroup)

	assert.True(t, thread.Messages[4].DaySeparator)
	assert.True(t, thread.Messages[4].StartOfGroup)
}

func TestBuildThread_empty(t *testing.T) {
	thread := buildThread(42, nil)
	assert.Equal(t, 42, thread.UserTrainingResultID)
	assert.Equal(t, 0, thread.Total)
	assert.Empty(t, thread.Messages)
}
