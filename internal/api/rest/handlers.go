package rest

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/davidleathers/applicant-trust-engine/internal/domain/applicant"
	"github.com/davidleathers/applicant-trust-engine/internal/domain/assessment"
	"github.com/davidleathers/applicant-trust-engine/internal/service/alerting"
	"github.com/davidleathers/applicant-trust-engine/internal/service/fraud"
)

// Handler exposes the assessment engine over HTTP
type Handler struct {
	*BaseHandler

	fraud    fraud.Service
	registry *fraud.PatternRegistry
	patterns fraud.PatternRepository
	alerts   *alerting.Manager
	logger   *slog.Logger
}

// NewHandler creates the REST handler surface
func NewHandler(
	base *BaseHandler,
	fraudService fraud.Service,
	registry *fraud.PatternRegistry,
	patterns fraud.PatternRepository,
	alerts *alerting.Manager,
	logger *slog.Logger,
) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		BaseHandler: base,
		fraud:       fraudService,
		registry:    registry,
		patterns:    patterns,
		alerts:      alerts,
		logger:      logger,
	}
}

// Request and response types

type createAssessmentRequest struct {
	ApplicantID string                    `json:"applicant_id" validate:"required,max=128"`
	Tier        string                    `json:"tier" validate:"omitempty,oneof=basic standard enhanced"`
	Personal    personalInfoRequest       `json:"personal_info" validate:"required"`
	Documents   []documentRequest         `json:"documents" validate:"max=50,dive"`
	Behavior    *applicant.BehaviorData   `json:"behavior,omitempty"`
	Network     *applicant.NetworkContext `json:"network,omitempty"`
	SubmittedAt *time.Time                `json:"submitted_at,omitempty"`
}

type personalInfoRequest struct {
	FullName    string `json:"full_name" validate:"required,max=256"`
	DateOfBirth string `json:"date_of_birth" validate:"required,max=64"`
	Address     string `json:"address" validate:"max=512"`
	Email       string `json:"email" validate:"required,email"`
	Phone       string `json:"phone" validate:"max=32"`
}

type documentRequest struct {
	ID       string                     `json:"id" validate:"required,max=128"`
	Type     string                     `json:"type" validate:"required,max=64"`
	Hash     string                     `json:"hash" validate:"required,sha256"`
	Metadata applicant.DocumentMetadata `json:"metadata"`
}

type assessmentResponse struct {
	*assessment.FraudAnalysisResult
	RecommendedStatus applicant.ApplicationStatus `json:"recommended_status,omitempty"`
}

type listResponse struct {
	Items interface{} `json:"items"`
	Count int         `json:"count"`
}

type patternRequest struct {
	Name     string  `json:"name" validate:"required,max=256"`
	Category string  `json:"category" validate:"required,oneof=document identity behavioral network"`
	Severity string  `json:"severity" validate:"required,oneof=low medium high critical"`
	Weight   float64 `json:"weight" validate:"riskscore"`
	Active   bool    `json:"active"`
}

type thresholdUpdateRequest struct {
	RiskThresholds  *riskThresholdsRequest `json:"risk_thresholds,omitempty"`
	CategoryWeights map[string]float64     `json:"category_weights,omitempty" validate:"dive,riskscore"`
	AlertSettings   *alertSettingsRequest  `json:"alert_settings,omitempty"`
}

type riskThresholdsRequest struct {
	Low      float64 `json:"low" validate:"riskscore"`
	Medium   float64 `json:"medium" validate:"riskscore"`
	High     float64 `json:"high" validate:"riskscore"`
	Critical float64 `json:"critical" validate:"riskscore"`
}

type alertSettingsRequest struct {
	EnableRealTimeAlerts bool    `json:"enable_real_time_alerts"`
	EscalationThreshold  float64 `json:"escalation_threshold" validate:"riskscore"`
	AutoRejectThreshold  float64 `json:"auto_reject_threshold" validate:"riskscore"`
}

// Assessment handlers

// handleCreateAssessment runs the full evaluator pipeline against a
// submission and returns the verdict.
func (h *Handler) handleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	var req createAssessmentRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	input := req.toInput()
	result, err := h.fraud.AnalyzeFraudRisk(r.Context(), input)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeSuccess(w, r, http.StatusCreated, newAssessmentResponse(result))
}

func (h *Handler) handleGetAssessment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, &ValidationError{Message: "Invalid assessment ID", Details: "must be a UUID"})
		return
	}

	result, err := h.fraud.GetAssessment(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeSuccess(w, r, http.StatusOK, newAssessmentResponse(result))
}

func (h *Handler) handleListAssessments(w http.ResponseWriter, r *http.Request) {
	applicantID := r.PathValue("id")
	limit, err := queryLimit(r, 0)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	results, err := h.fraud.ListAssessments(r.Context(), applicantID, limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	items := make([]*assessmentResponse, len(results))
	for i, result := range results {
		items[i] = newAssessmentResponse(result)
	}

	h.writeSuccess(w, r, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

func (h *Handler) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.fraud.GetProfile(r.Context(), r.PathValue("id"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeSuccess(w, r, http.StatusOK, profile)
}

// Pattern catalog handlers

func (h *Handler) handleListPatterns(w http.ResponseWriter, r *http.Request) {
	patterns := h.registry.List()
	h.writeSuccess(w, r, http.StatusOK, listResponse{Items: patterns, Count: len(patterns)})
}

// handleUpsertPattern replaces a catalog entry in the live registry and
// persists it so the definition survives restarts.
func (h *Handler) handleUpsertPattern(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req patternRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	pattern := &assessment.FraudPattern{
		ID:       id,
		Name:     req.Name,
		Category: assessment.PatternCategory(req.Category),
		Severity: assessment.Severity(req.Severity),
		Weight:   req.Weight,
		Active:   req.Active,
	}

	if err := h.registry.Register(pattern); err != nil {
		h.handleError(w, r, err)
		return
	}

	if h.patterns != nil {
		if err := h.patterns.Upsert(r.Context(), pattern); err != nil {
			h.logger.ErrorContext(r.Context(), "pattern persisted to registry but not to storage",
				"pattern_id", id,
				"error", err)
			h.handleError(w, r, err)
			return
		}
	}

	h.writeSuccess(w, r, http.StatusOK, pattern)
}

func (h *Handler) handleDeactivatePattern(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.registry.Deactivate(id); err != nil {
		h.handleError(w, r, err)
		return
	}

	if h.patterns != nil {
		if err := h.patterns.Deactivate(r.Context(), id); err != nil {
			h.logger.ErrorContext(r.Context(), "pattern deactivated in registry but not in storage",
				"pattern_id", id,
				"error", err)
			h.handleError(w, r, err)
			return
		}
	}

	w.WriteHeader(http.StatusNoContent)
}

// Admin handlers

func (h *Handler) handleUpdateThresholds(w http.ResponseWriter, r *http.Request) {
	var req thresholdUpdateRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	update := req.toUpdate()
	if err := h.fraud.UpdateThresholds(r.Context(), update); err != nil {
		h.handleError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "decision thresholds updated",
		"thresholds_changed", update.RiskThresholds != nil,
		"weights_changed", len(update.CategoryWeights) > 0,
		"alerts_changed", update.AlertSettings != nil)

	w.WriteHeader(http.StatusNoContent)
}

// Alert handlers

func (h *Handler) handleListAlerts(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, alerting.DefaultRecentLimit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	alerts, err := h.alerts.GetRecent(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeSuccess(w, r, http.StatusOK, listResponse{Items: alerts, Count: len(alerts)})
}

// Conversions

func (req *createAssessmentRequest) toInput() *fraud.AssessmentInput {
	tier := applicant.VerificationTier(req.Tier)
	if req.Tier == "" {
		tier = applicant.TierStandard
	}

	submittedAt := time.Now().UTC()
	if req.SubmittedAt != nil {
		submittedAt = req.SubmittedAt.UTC()
	}

	documents := make([]applicant.Document, len(req.Documents))
	for i, doc := range req.Documents {
		documents[i] = applicant.Document{
			ID:       doc.ID,
			Type:     doc.Type,
			Hash:     doc.Hash,
			Metadata: doc.Metadata,
		}
	}

	return &fraud.AssessmentInput{
		ApplicantID: req.ApplicantID,
		Tier:        tier,
		Personal: applicant.PersonalInfo{
			FullName:    req.Personal.FullName,
			DateOfBirth: req.Personal.DateOfBirth,
			Address:     req.Personal.Address,
			Email:       req.Personal.Email,
			Phone:       req.Personal.Phone,
		},
		Documents:   documents,
		Behavior:    req.Behavior,
		Network:     req.Network,
		SubmittedAt: submittedAt,
	}
}

func (req *thresholdUpdateRequest) toUpdate() fraud.ThresholdUpdate {
	update := fraud.ThresholdUpdate{}

	if req.RiskThresholds != nil {
		update.RiskThresholds = &fraud.RiskThresholds{
			Low:      req.RiskThresholds.Low,
			Medium:   req.RiskThresholds.Medium,
			High:     req.RiskThresholds.High,
			Critical: req.RiskThresholds.Critical,
		}
	}

	if len(req.CategoryWeights) > 0 {
		update.CategoryWeights = make(map[assessment.PatternCategory]float64, len(req.CategoryWeights))
		for category, weight := range req.CategoryWeights {
			update.CategoryWeights[assessment.PatternCategory(category)] = weight
		}
	}

	if req.AlertSettings != nil {
		update.AlertSettings = &fraud.AlertSettings{
			EnableRealTimeAlerts: req.AlertSettings.EnableRealTimeAlerts,
			EscalationThreshold:  req.AlertSettings.EscalationThreshold,
			AutoRejectThreshold:  req.AlertSettings.AutoRejectThreshold,
		}
	}

	return update
}

// newAssessmentResponse derives the workflow hint from the verdict flags.
// Auto-reject wins over manual review.
func newAssessmentResponse(result *assessment.FraudAnalysisResult) *assessmentResponse {
	resp := &assessmentResponse{FraudAnalysisResult: result}
	switch {
	case result.AutoReject:
		resp.RecommendedStatus = applicant.StatusRejected
	case result.RequiresManualReview:
		resp.RecommendedStatus = applicant.StatusUnderReview
	}
	return resp
}

func queryLimit(r *http.Request, fallback int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, &ValidationError{Message: "Invalid limit parameter", Details: "must be a non-negative integer"}
	}
	return limit, nil
}
