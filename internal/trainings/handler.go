package trainings

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

type trainingsRepo interface {
	Add(ctx context.Context, training Training) (*Training, error)
	Get(ctx context.Context, id int) (*Training, error)
	ListAll(ctx context.Context) ([]Training, error)
	Update(ctx context.Context, training *Training) error
	Delete(ctx context.Context, id int) error
}

type DeleteTrainingResponse struct {
	DeletedID int `json:"deletedId"`
}

type UpdateTrainingResponse struct {
	UpdatedID int `json:"updatedId"`
}

type ListResponse struct {
	Trainings []Training `json:"trainings"`
	Total     int        `json:"total"`
}

type Handler struct {
	repo trainingsRepo
}

func NewHandler(repo trainingsRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var training Training
	if err := json.NewDecoder(r.Body).Decode(&training); err != nil {
		log.Tracef("new training, unmarshal json params: %s", err)
		http.Error(w, "add training failed", http.StatusBadRequest)
		return
	}

	if training.Title == "" {
		http.Error(w, "error, training title empty", http.StatusBadRequest)
		return
	}
	if !training.TrainingType.Valid() {
		http.Error(w, "error, invalid training type", http.StatusBadRequest)
		return
	}

	addedTraining, err := handler.repo.Add(ctx, training)
	if err != nil {
		log.Errorf("failed to add new training [%s]: %s", training.Title, err)
		http.Error(w, "error, failed to add new training", http.StatusInternalServerError)
		return
	}

	addedTrainingJson, err := json.Marshal(addedTraining)
	if err != nil {
		log.Errorf("failed to marshal new training: %s", err)
		http.Error(w, "error, failed to add new training", http.StatusInternalServerError)
		return
	}

	log.Debugf("new training added: %s", addedTrainingJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedTrainingJson, http.StatusCreated)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.get")
	defer span.End()

	id, err := trainingIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	training, err := handler.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			http.Error(w, "training not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to get training %d: %s", id, err)
		http.Error(w, "failed to get training", http.StatusInternalServerError)
		return
	}

	trainingJson, err := json.Marshal(training)
	if err != nil {
		log.Errorf("failed to marshal training: %s", err)
		http.Error(w, "failed to marshal training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, trainingJson)
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.list")
	defer span.End()

	trainingsList, err := handler.repo.ListAll(ctx)
	if err != nil {
		log.Errorf("failed to list trainings: %s", err)
		http.Error(w, "failed to list trainings", http.StatusInternalServerError)
		return
	}
	if trainingsList == nil {
		trainingsList = []Training{}
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Trainings: trainingsList,
		Total:     len(trainingsList),
	})
	if err != nil {
		log.Errorf("failed to marshal trainings list: %s", err)
		http.Error(w, "failed to marshal trainings list", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

func (handler *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.update")
	defer span.End()

	id, err := trainingIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var training Training
	if err := json.NewDecoder(r.Body).Decode(&training); err != nil {
		log.Tracef("update training, unmarshal json params: %s", err)
		http.Error(w, "update training failed", http.StatusBadRequest)
		return
	}
	training.ID = id

	if training.Title == "" {
		http.Error(w, "error, training title empty", http.StatusBadRequest)
		return
	}
	if !training.TrainingType.Valid() {
		http.Error(w, "error, invalid training type", http.StatusBadRequest)
		return
	}

	if err := handler.repo.Update(ctx, &training); err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			http.Error(w, "training not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to update training %d: %s", id, err)
		http.Error(w, "failed to update training", http.StatusInternalServerError)
		return
	}

	updateResponseJson, err := json.Marshal(UpdateTrainingResponse{UpdatedID: id})
	if err != nil {
		log.Errorf("failed to marshal update training response: %s", err)
		http.Error(w, "failed to update training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, updateResponseJson)
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.trainings.delete")
	defer span.End()

	id, err := trainingIDFromRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := handler.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrTrainingNotFound) {
			http.Error(w, "training not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete training %d: %s", id, err)
		http.Error(w, "failed to delete training", http.StatusInternalServerError)
		return
	}

	deleteResponseJson, err := json.Marshal(DeleteTrainingResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete training response: %s", err)
		http.Error(w, "failed to delete training", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteResponseJson)
}

func trainingIDFromRequest(r *http.Request) (int, error) {
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
