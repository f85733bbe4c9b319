package evaluations

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainingkarte/internal/telemetry/metrics"
	"github.com/2beens/trainingkarte/internal/telemetry/tracing"
	"github.com/2beens/trainingkarte/internal/trainings"
	"github.com/2beens/trainingkarte/pkg"
)

type evaluationsRepo interface {
	Add(ctx context.Context, evaluation Evaluation) (*Evaluation, error)
	Get(ctx context.Context, id int) (*Evaluation, error)
	Update(ctx context.Context, evaluation *Evaluation) error
	Delete(ctx context.Context, id int) error
	ListForUser(ctx context.Context, userID string) ([]Evaluation, error)
}

type trainingsCatalog interface {
	Get(ctx context.Context, id int) (*trainings.Training, error)
	TrainingsMap(ctx context.Context) (map[int]trainings.Training, error)
}

type DeleteEvaluationResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateEvaluationResponse struct {
	UpdatedID int `json:"updatedId"`
}

type ListResponse struct {
	Evaluations []Evaluation `json:"evaluations"`
	Total       int          `json:"total"`
}

type Handler struct {
	repo           evaluationsRepo
	catalog        trainingsCatalog
	metricsManager *metrics.Manager
}

func NewHandler(
	repo evaluationsRepo,
	catalog trainingsCatalog,
	metricsManager *metrics.Manager,
) *Handler {
	return &Handler{
		repo:           repo,
		catalog:        catalog,
		metricsManager: metricsManager,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.evaluations.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var evaluation Evaluation
	if err := json.NewDecoder(r.Body).Decode(&evaluation); err != nil {
		log.Tracef("new evaluation, unmarshal json params: %s", err)
		http.Error(w, "add evaluation failed", http.StatusBadRequest)
		return
	}

	if evaluation.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}
	if !evaluation.AchievementLevel.Valid() {
		http.Error(w, "error, invalid achievement level", http.StatusBadRequest)
		return
	}

	// the training must exist in the catalog
	if _, err := handler.catalog.Get(ctx, evaluation.TrainingID); err != nil {
		if errors.Is(err, trainings.ErrTrainingNotFound) {
			http.Error(w, "error, training not found", http.StatusBadRequest)
			return
		}
		log.Errorf("failed to check training %d: %s", evaluation.TrainingID, err)
		http.Error(w, "error, failed to add new evaluation", http.StatusInternalServerError)
		return
	}

	now := time.Now()
	if evaluation.Date.IsZero() {
		evaluation.Date = now
	}
	evaluation.CreatedAt = now

	addedEvaluation, err := handler.repo.Add(ctx, evaluation)
	if err != nil {
		log.Errorf(
			"failed to add new evaluation [user %s, training %d]: %s",
			evaluation.UserID, evaluation.TrainingID, err,
		)
		http.Error(w, "error, failed to add new evaluation", http.StatusInternalServerError)
		return
	}

	handler.metricsManager.CounterEvaluations.Inc()

	addedEvaluationJson, err := json.Marshal(addedEvaluation)
	if err != nil {
		log.Errorf("failed to marshal new evaluation: %s", err)
		http.Error(w, "error, failed to add new evaluation", http.StatusInternalServerError)
		return
	}

	log.Debugf("new evaluation added: %s", addedEvaluationJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedEvaluationJson, http.StatusCreated)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.evaluations.update")
	defer span.End()

	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var evaluation Evaluation
	if err := json.NewDecoder(r.Body).Decode(&evaluation); err != nil {
		log.Tracef("update evaluation, unmarshal json params: %s", err)
		http.Error(w, "update evaluation failed", http.StatusBadRequest)
		return
	}
	evaluation.ID = id

	if !evaluation.AchievementLevel.Valid() {
		http.Error(w, "error, invalid achievement level", http.StatusBadRequest)
		return
	}
	if evaluation.Date.IsZero() {
		evaluation.Date = time.Now()
	}

	if err := handler.repo.Update(ctx, &evaluation); err != nil {
		if errors.Is(err, ErrEvaluationNotFound) {
			http.Error(w, "evaluation not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update evaluation %d: %s", id, err)
		http.Error(w, "failed to update evaluation", http.StatusInternalServerError)
		return
	}

	updateResponseJson, err := json.Marshal(UpdateEvaluationResponse{UpdatedID: id})
	if err != nil {
		log.Errorf("failed to marshal update evaluation response: %s", err)
		http.Error(w, "failed to update evaluation", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updateResponseJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.evaluations.delete")
	defer span.End()

	id, err := idFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrEvaluationNotFound) {
			http.Error(w, "evaluation not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete evaluation %d: %s", id, err)
		http.Error(w, "failed to delete evaluation", http.StatusInternalServerError)
		return
	}

	deleteResponseJson, err := json.Marshal(DeleteEvaluationResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete evaluation response: %s", err)
		http.Error(w, "failed to delete evaluation", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteResponseJson)
}

// HandleListForUser returns the raw evaluation history of a user,
// without the latest-per-training reduction. An optional ?training=
// query param narrows the list to a single training.
func (handler *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.evaluations.listforuser")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	evals, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("failed to list evaluations for user %s: %s", userID, err)
		http.Error(w, "failed to list evaluations", http.StatusInternalServerError)
		return
	}

	if trainingIDStr := r.URL.Query().Get("training"); trainingIDStr != "" {
		trainingID, err := strconv.Atoi(trainingIDStr)
		if err != nil {
			http.Error(w, "error, training id NaN", http.StatusBadRequest)
			return
		}
		filtered := make([]Evaluation, 0, len(evals))
		for _, e := range evals {
			if e.TrainingID == trainingID {
				filtered = append(filtered, e)
			}
		}
		evals = filtered
	}

	if evals == nil {
		evals = []Evaluation{}
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Evaluations: evals,
		Total:       len(evals),
	})
	if err != nil {
		log.Errorf("failed to marshal evaluations list: %s", err)
		http.Error(w, "failed to marshal evaluations list", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

func (handler *Handler) HandleKarte(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.evaluations.karte")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	karte, err := handler.buildKarte(ctx, userID)
	if err != nil {
		log.Errorf("failed to build karte for user %s: %s", userID, err)
		http.Error(w, "failed to build karte", http.StatusInternalServerError)
		return
	}

	karteJson, err := json.Marshal(karte)
	if err != nil {
		log.Errorf("failed to marshal karte: %s", err)
		http.Error(w, "failed to marshal karte", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, karteJson)
}

// HandleSummary returns only the per-category status counts of the karte.
func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.evaluations.summary")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	karte, err := handler.buildKarte(ctx, userID)
	if err != nil {
		log.Errorf("failed to build karte summary for user %s: %s", userID, err)
		http.Error(w, "failed to build summary", http.StatusInternalServerError)
		return
	}

	summaryJson, err := json.Marshal(karte.Summary)
	if err != nil {
		log.Errorf("failed to marshal summary: %s", err)
		http.Error(w, "failed to marshal summary", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, summaryJson)
}

func (handler *Handler) buildKarte(ctx context.Context, userID string) (*Karte, error) {
	evals, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	trainingsMap, err := handler.catalog.TrainingsMap(ctx)
	if err != nil {
		return nil, err
	}

	karte := BuildKarte(userID, evals, trainingsMap)
	return &karte, nil
}

func idFromRequest(r *http.Request) (int, error) {
	vars := mux.Vars(r)
	idStr := vars["id"]
	if idStr == "" {
		return 0, errors.New("error, id empty")
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		return 0, errors.New("error, id NaN")
	}
	return id, nil
}
