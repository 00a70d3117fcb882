// Package handlers implements the read-only REST endpoints over the
// narrative store.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"pulse-backend/application/ports"
	"pulse-backend/domain/core/entities"
	"pulse-backend/domain/core/valueobjects"
	"pulse-backend/pkg/api"
	pkgerrors "pulse-backend/pkg/errors"
)

const defaultListLimit = 50

// NarrativeHandler serves narrative read endpoints.
type NarrativeHandler struct {
	narrativeRepo ports.NarrativeRepository
	logger        *zap.Logger
}

// NewNarrativeHandler creates a narrative handler.
func NewNarrativeHandler(narrativeRepo ports.NarrativeRepository, logger *zap.Logger) *NarrativeHandler {
	return &NarrativeHandler{
		narrativeRepo: narrativeRepo,
		logger:        logger,
	}
}

// ListNarratives returns narratives, optionally filtered by lifecycle state.
// GET /api/v1/narratives?state=hot&limit=20
func (h *NarrativeHandler) ListNarratives(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			api.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	var narratives []*entities.Narrative
	var err error

	if raw := r.URL.Query().Get("state"); raw != "" {
		state := valueobjects.LifecycleState(raw)
		if !state.IsValid() {
			api.Error(w, http.StatusBadRequest, "unknown lifecycle state: "+raw)
			return
		}
		narratives, err = h.narrativeRepo.FindByState(r.Context(), state, limit)
	} else {
		// Default view: anything touched in the last 30 days.
		since := time.Now().UTC().AddDate(0, 0, -30)
		narratives, err = h.narrativeRepo.FindActive(r.Context(), since)
		if err == nil && len(narratives) > limit {
			narratives = narratives[:limit]
		}
	}

	if err != nil {
		h.logger.Error("failed to list narratives", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "failed to list narratives")
		return
	}

	response := api.ListNarrativesResponse{
		Narratives: make([]api.NarrativeResponse, 0, len(narratives)),
		Count:      len(narratives),
	}
	for _, n := range narratives {
		response.Narratives = append(response.Narratives, toNarrativeResponse(n))
	}
	api.Success(w, http.StatusOK, response)
}

// GetNarrative returns one narrative by id. A tombstone is returned as-is
// with its mergedInto pointer so clients can follow the merge.
// GET /api/v1/narratives/{narrativeID}
func (h *NarrativeHandler) GetNarrative(w http.ResponseWriter, r *http.Request) {
	narrative, ok := h.loadNarrative(w, r)
	if !ok {
		return
	}
	api.Success(w, http.StatusOK, toNarrativeResponse(narrative))
}

// GetTimeline returns the daily activity timeline of one narrative.
// GET /api/v1/narratives/{narrativeID}/timeline
func (h *NarrativeHandler) GetTimeline(w http.ResponseWriter, r *http.Request) {
	narrative, ok := h.loadNarrative(w, r)
	if !ok {
		return
	}

	timeline := narrative.Timeline()
	response := api.TimelineResponse{
		NarrativeID: narrative.ID().String(),
		Snapshots:   make([]api.SnapshotResponse, 0, len(timeline)),
	}
	for _, snap := range timeline {
		response.Snapshots = append(response.Snapshots, toSnapshotResponse(snap))
	}
	if peak := narrative.PeakActivity(); peak != nil {
		p := toSnapshotResponse(*peak)
		response.PeakActivity = &p
	}
	api.Success(w, http.StatusOK, response)
}

func (h *NarrativeHandler) loadNarrative(w http.ResponseWriter, r *http.Request) (*entities.Narrative, bool) {
	id, err := valueobjects.ParseNarrativeID(chi.URLParam(r, "narrativeID"))
	if err != nil {
		api.Error(w, http.StatusBadRequest, "invalid narrative id")
		return nil, false
	}

	narrative, err := h.narrativeRepo.GetByID(r.Context(), id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			api.Error(w, http.StatusNotFound, "narrative not found")
			return nil, false
		}
		h.logger.Error("failed to get narrative",
			zap.String("narrative_id", id.String()),
			zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "failed to get narrative")
		return nil, false
	}
	return narrative, true
}

func toNarrativeResponse(n *entities.Narrative) api.NarrativeResponse {
	fp := n.Fingerprint()

	rels := make([]api.RelationshipResponse, 0, len(n.Relationships()))
	for _, rel := range n.Relationships() {
		rels = append(rels, api.RelationshipResponse{
			EntityA: rel.EntityA,
			EntityB: rel.EntityB,
			Weight:  rel.Weight,
		})
	}

	response := api.NarrativeResponse{
		ID:              n.ID().String(),
		Theme:           n.Theme(),
		Summary:         n.Summary(),
		Entities:        n.Entities(),
		ArticleCount:    n.ArticleCount(),
		MentionVelocity: n.MentionVelocity(),
		LifecycleState:  string(n.LifecycleState()),
		Momentum:        string(n.Momentum()),
		FirstSeen:       n.FirstSeen().UTC().Format(time.RFC3339),
		LastUpdated:     n.LastUpdated().UTC().Format(time.RFC3339),
		DaysActive:      n.DaysActive(),
		Fingerprint: api.FingerprintResponse{
			NucleusEntity: fp.NucleusEntity(),
			TopActors:     fp.TopActors(),
			KeyActions:    fp.KeyActions(),
		},
		Relationships: rels,
	}
	if n.IsTombstone() {
		response.MergedInto = n.MergedInto().String()
	}
	return response
}

func toSnapshotResponse(snap valueobjects.TimelineSnapshot) api.SnapshotResponse {
	return api.SnapshotResponse{
		Date:         snap.Date.Format("2006-01-02"),
		ArticleCount: snap.ArticleCount,
		Entities:     snap.Entities,
		Velocity:     snap.Velocity,
	}
}
