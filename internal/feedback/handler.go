package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainingkarte/internal/telemetry/tracing"
	"github.com/2beens/trainingkarte/pkg"
)

type feedbackService interface {
	Send(ctx context.Context, message Message) (*Message, error)
	Thread(ctx context.Context, resultID int) (*Thread, error)
	MarkRead(ctx context.Context, messageID int, reader SenderType, readerID string) (int, error)
	CountUnread(ctx context.Context, userID string, reader SenderType) (int, error)
}

type MarkReadRequest struct {
	ReaderID   string     `json:"reader_id"`
	ReaderType SenderType `json:"reader_type"`
}

type MarkReadResponse struct {
	Updated int `json:"updated"`
}

type UnreadCountResponse struct {
	Count int `json:"count"`
}

type Handler struct {
	service feedbackService
}

func NewHandler(service feedbackService) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.feedback.send")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	resultID, err := resultIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var message Message
	if err := json.NewDecoder(r.Body).Decode(&message); err != nil {
		log.Tracef("send feedback message, unmarshal json params: %s", err)
		http.Error(w, "send message failed", http.StatusBadRequest)
		return
	}
	message.UserTrainingResultID = resultID

	sentMessage, err := handler.service.Send(ctx, message)
	if err != nil {
		if errors.Is(err, ErrEmptyMessage) {
			http.Error(w, "error, message empty", http.StatusBadRequest)
			return
		}
		if errors.Is(err, ErrResultNotFound) {
			http.Error(w, "error, training result not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to send feedback message [result %d]: %s", resultID, err)
		http.Error(w, "failed to send message", http.StatusBadRequest)
		return
	}

	sentMessageJson, err := json.Marshal(sentMessage)
	if err != nil {
		log.Errorf("failed to marshal sent message: %s", err)
		http.Error(w, "failed to send message", http.StatusInternalServerError)
		return
	}

	log.Debugf("new feedback message sent: %s", sentMessageJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, sentMessageJson, http.StatusCreated)
}

func (handler *Handler) HandleThread(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.feedback.thread")
	defer span.End()

	resultID, err := resultIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	thread, err := handler.service.Thread(ctx, resultID)
	if err != nil {
		log.Errorf("failed to get feedback thread [result %d]: %s", resultID, err)
		http.Error(w, "failed to get thread", http.StatusInternalServerError)
		return
	}

	threadJson, err := json.Marshal(thread)
	if err != nil {
		log.Errorf("failed to marshal feedback thread: %s", err)
		http.Error(w, "failed to get thread", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, threadJson)
}

func (handler *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.feedback.markread")
	defer span.End()

	messageID, err := messageIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var markReadRequest MarkReadRequest
	if err := json.NewDecoder(r.Body).Decode(&markReadRequest); err != nil {
		log.Tracef("mark read, unmarshal json params: %s", err)
		http.Error(w, "mark read failed", http.StatusBadRequest)
		return
	}

	if !markReadRequest.ReaderType.Valid() {
		http.Error(w, "error, invalid reader type", http.StatusBadRequest)
		return
	}

	updated, err := handler.service.MarkRead(ctx, messageID, markReadRequest.ReaderType, markReadRequest.ReaderID)
	if err != nil {
		log.Errorf("failed to mark feedback message read [message %d]: %s", messageID, err)
		http.Error(w, "failed to mark read", http.StatusInternalServerError)
		return
	}

	markReadResponseJson, err := json.Marshal(MarkReadResponse{Updated: updated})
	if err != nil {
		log.Errorf("failed to marshal mark read response: %s", err)
		http.Error(w, "failed to mark read", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, markReadResponseJson)
}

func (handler *Handler) HandleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.feedback.unreadcount")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	reader := SenderType(r.URL.Query().Get("reader"))
	if reader == "" {
		reader = SenderTypeUser
	}
	if !reader.Valid() {
		http.Error(w, "error, invalid reader type", http.StatusBadRequest)
		return
	}

	count, err := handler.service.CountUnread(ctx, userID, reader)
	if err != nil {
		log.Errorf("failed to count unread messages for user %s: %s", userID, err)
		http.Error(w, "failed to count unread messages", http.StatusInternalServerError)
		return
	}

	unreadCountResponseJson, err := json.Marshal(UnreadCountResponse{Count: count})
	if err != nil {
		log.Errorf("failed to marshal unread count response: %s", err)
		http.Error(w, "failed to count unread messages", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, unreadCountResponseJson)
}

func resultIDFromRequest(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		return 0, errors.New("error, result id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, result id NaN")
	}
	return id, nil
}

func messageIDFromRequest(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		return 0, errors.New("error, message id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, message id NaN")
	}
	return id, nil
}
