package physical

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/2beens/trainingkarte/internal/telemetry/tracing"
	"github.com/2beens/trainingkarte/pkg"
)

type physicalRepo interface {
	AddMeasurement(ctx context.Context, measurement Measurement) (*Measurement, error)
	DeleteMeasurement(ctx context.Context, id int) error
	ListForUser(ctx context.Context, userID string) ([]Measurement, error)
	SetReference(ctx context.Context, reference Reference) error
	GetReferences(ctx context.Context) (map[RefKey]Reference, error)
}

type DeleteMeasurementResponse struct {
	DeletedID int `json:"deletedId"`
}

type ListResponse struct {
	Measurements []Measurement `json:"measurements"`
	Total        int           `json:"total"`
}

type Handler struct {
	repo physicalRepo
}

func NewHandler(repo physicalRepo) *Handler {
	return &Handler{
		repo: repo,
	}
}

func (handler *Handler) HandleAddMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.physical.new")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var measurement Measurement
	if err := json.NewDecoder(r.Body).Decode(&measurement); err != nil {
		log.Tracef("new measurement, unmarshal json params: %s", err)
		http.Error(w, "add measurement failed", http.StatusBadRequest)
		return
	}

	if measurement.UserID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}
	if measurement.Grade == "" {
		http.Error(w, "error, grade empty", http.StatusBadRequest)
		return
	}
	if measurement.LongJumpCm <= 0 ||
		measurement.FiftyMeterRunMs <= 0 ||
		measurement.SpiderMs <= 0 ||
		measurement.EightShapeRunCount <= 0 ||
		measurement.BallThrowCm <= 0 {
		http.Error(w, "error, invalid measurement values", http.StatusBadRequest)
		return
	}

	if measurement.Date.IsZero() {
		measurement.Date = time.Now()
	}

	addedMeasurement, err := handler.repo.AddMeasurement(ctx, measurement)
	if err != nil {
		log.Errorf("failed to add measurement [user %s]: %s", measurement.UserID, err)
		http.Error(w, "error, failed to add measurement", http.StatusInternalServerError)
		return
	}

	addedMeasurementJson, err := json.Marshal(addedMeasurement)
	if err != nil {
		log.Errorf("failed to marshal new measurement: %s", err)
		http.Error(w, "error, failed to add measurement", http.StatusInternalServerError)
		return
	}

	log.Debugf("new measurement added: %s", addedMeasurementJson)
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, addedMeasurementJson, http.StatusCreated)
}

func (handler *Handler) HandleDeleteMeasurement(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.physical.delete")
	defer span.End()

	idStr := mux.Vars(r)["id"]
	if idStr == "" {
		http.Error(w, "error, id empty", http.StatusBadRequest)
		return
	}
	id, err := strconv.Atoi(idStr)
	if err != nil {
		http.Error(w, "error, id NaN", http.StatusBadRequest)
		return
	}

	if err := handler.repo.DeleteMeasurement(ctx, id); err != nil {
		if errors.Is(err, ErrMeasurementNotFound) {
			http.Error(w, "measurement not found", http.StatusNotFound)
			return
		}
		log.Errorf("failed to delete measurement %d: %s", id, err)
		http.Error(w, "failed to delete measurement", http.StatusInternalServerError)
		return
	}

	deleteResponseJson, err := json.Marshal(DeleteMeasurementResponse{DeletedID: id})
	if err != nil {
		log.Errorf("failed to marshal delete measurement response: %s", err)
		http.Error(w, "failed to delete measurement", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, deleteResponseJson)
}

func (handler *Handler) HandleSetReference(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.physical.setreference")
	defer span.End()

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var reference Reference
	if err := json.NewDecoder(r.Body).Decode(&reference); err != nil {
		log.Tracef("set reference, unmarshal json params: %s", err)
		http.Error(w, "set reference failed", http.StatusBadRequest)
		return
	}

	if reference.Grade == "" {
		http.Error(w, "error, grade empty", http.StatusBadRequest)
		return
	}
	if !reference.Type.Valid() {
		http.Error(w, "error, invalid reference type", http.StatusBadRequest)
		return
	}
	if reference.LongJumpCm <= 0 ||
		reference.FiftyMeterRunMs <= 0 ||
		reference.SpiderMs <= 0 ||
		reference.EightShapeRunCount <= 0 ||
		reference.BallThrowCm <= 0 {
		http.Error(w, "error, invalid reference values", http.StatusBadRequest)
		return
	}

	if err := handler.repo.SetReference(ctx, reference); err != nil {
		log.Errorf(
			"failed to set reference [grade %s, type %s]: %s",
			reference.Grade, reference.Type, err,
		)
		http.Error(w, "failed to set reference", http.StatusInternalServerError)
		return
	}

	pkg.WriteTextResponseOK(w, "set")
}

type ReferencesResponse struct {
	References []Reference `json:"references"`
	Total      int         `json:"total"`
}

// HandleGetReferences returns the stored cohort rows, both averages and
// maximums, optionally narrowed to one school grade via ?grade=.
func (handler *Handler) HandleGetReferences(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.physical.getreferences")
	defer span.End()

	grade := r.URL.Query().Get("grade")

	referencesMap, err := handler.repo.GetReferences(ctx)
	if err != nil {
		log.Errorf("failed to get references: %s", err)
		http.Error(w, "failed to get references", http.StatusInternalServerError)
		return
	}

	references := make([]Reference, 0, len(referencesMap))
	for key, ref := range referencesMap {
		if grade != "" && key.Grade != grade {
			continue
		}
		references = append(references, ref)
	}
	sort.Slice(references, func(i, j int) bool {
		if references[i].Grade != references[j].Grade {
			return references[i].Grade < references[j].Grade
		}
		return references[i].Type < references[j].Type
	})

	referencesResponseJson, err := json.Marshal(ReferencesResponse{
		References: references,
		Total:      len(references),
	})
	if err != nil {
		log.Errorf("failed to marshal references: %s", err)
		http.Error(w, "failed to get references", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, referencesResponseJson)
}

func (handler *Handler) HandleListForUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.physical.listforuser")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	measurements, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("failed to list measurements for user %s: %s", userID, err)
		http.Error(w, "failed to list measurements", http.StatusInternalServerError)
		return
	}
	if measurements == nil {
		measurements = []Measurement{}
	}

	listResponseJson, err := json.Marshal(ListResponse{
		Measurements: measurements,
		Total:        len(measurements),
	})
	if err != nil {
		log.Errorf("failed to marshal measurements list: %s", err)
		http.Error(w, "failed to marshal measurements list", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, listResponseJson)
}

// HandleProfile returns the radar profile of a user, the latest
// measurement scored against the cohort average of its grade.
func (handler *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.physical.profile")
	defer span.End()

	userID := mux.Vars(r)["userId"]
	if userID == "" {
		http.Error(w, "error, user id empty", http.StatusBadRequest)
		return
	}

	measurements, err := handler.repo.ListForUser(ctx, userID)
	if err != nil {
		log.Errorf("failed to list measurements for user %s: %s", userID, err)
		http.Error(w, "failed to build profile", http.StatusInternalServerError)
		return
	}

	references, err := handler.repo.GetReferences(ctx)
	if err != nil {
		log.Errorf("failed to get references: %s", err)
		http.Error(w, "failed to build profile", http.StatusInternalServerError)
		return
	}

	profile, err := BuildProfile(userID, measurements, references)
	if err != nil {
		if errors.Is(err, ErrInvalidReferenceData) {
			log.Errorf("invalid reference data for user %s profile", userID)
			http.Error(w, "invalid reference data", http.StatusConflict)
			return
		}
		log.Errorf("failed to build profile for user %s: %s", userID, err)
		http.Error(w, "failed to build profile", http.StatusInternalServerError)
		return
	}

	profileJson, err := json.Marshal(profile)
	if err != nil {
		log.Errorf("failed to marshal profile: %s", err)
		http.Error(w, "failed to marshal profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponseBytesOK(w, pkg.ContentType.JSON, profileJson)
}
