package pos

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smart-dining/internal/logger"
	"smart-dining/internal/models"
	"smart-dining/internal/workflow"
)

// Handler handles HTTP requests for the POS service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new POS handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// SetupRoutes sets up the HTTP routes
func (h *Handler) SetupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/orders", h.withLogging(h.handleOrders))
	mux.HandleFunc("/orders/", h.withLogging(h.routeOrderRequests))
	mux.HandleFunc("/payments", h.withLogging(h.RecordPayment))
	mux.HandleFunc("/tips", h.withLogging(h.AttachTip))
	mux.HandleFunc("/inventory/adjustments", h.withLogging(h.AdjustStock))
	mux.HandleFunc("/inventory/transactions", h.withLogging(h.ListTransactions))
	mux.HandleFunc("/audit", h.withLogging(h.ListAuditEntries))
	mux.HandleFunc("/health", h.withLogging(h.HealthCheck))

	return mux
}

// handleOrders handles POST /orders requests
func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}
	h.CreateOrder(w, r)
}

// routeOrderRequests routes /orders/{id}... requests to the right handler
func (h *Handler) routeOrderRequests(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/orders/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")

	orderID, err := strconv.Atoi(parts[0])
	if err != nil || orderID <= 0 {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid order id", "")
		return
	}

	switch {
	case len(parts) == 1 && r.Method == http.MethodGet:
		h.GetOrder(w, r, orderID)
	case len(parts) == 2 && parts[1] == "status" && r.Method == http.MethodPost:
		h.UpdateStatus(w, r, orderID)
	case len(parts) == 2 && parts[1] == "cancel" && r.Method == http.MethodPost:
		h.CancelOrder(w, r, orderID)
	case len(parts) == 2 && parts[1] == "history" && r.Method == http.MethodGet:
		h.StatusHistory(w, r, orderID)
	case len(parts) == 4 && parts[1] == "items" && parts[3] == "status" && r.Method == http.MethodPost:
		itemID, err := strconv.Atoi(parts[2])
		if err != nil || itemID <= 0 {
			h.writeErrorResponse(w, http.StatusBadRequest, "Invalid item id", "")
			return
		}
		h.UpdateItemPrepStatus(w, r, orderID, itemID)
	default:
		h.writeErrorResponse(w, http.StatusNotFound, "Endpoint not found", "")
	}
}

// CreateOrder handles POST /orders requests
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}

	order, err := h.service.CreateOrder(r.Context(), &req, actorFromRequest(r), requestID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, order, requestID)
}

// GetOrder handles GET /orders/{id} requests
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request, orderID int) {
	requestID := logger.GenerateRequestID()

	details, err := h.service.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, details, requestID)
}

// statusUpdateRequest is the body of POST /orders/{id}/status
type statusUpdateRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// UpdateStatus handles POST /orders/{id}/status requests
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request, orderID int) {
	requestID := logger.GenerateRequestID()

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}
	if req.Status == "" {
		h.writeErrorResponse(w, http.StatusBadRequest, "status is required", requestID)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), orderID, models.OrderStatus(req.Status), actorFromRequest(r), req.Reason, requestID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, order, requestID)
}

// cancelRequest is the body of POST /orders/{id}/cancel
type cancelRequest struct {
	Reason string `json:"reason"`
}

// CancelOrder handles POST /orders/{id}/cancel requests
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request, orderID int) {
	requestID := logger.GenerateRequestID()

	var req cancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}

	order, err := h.service.CancelOrder(r.Context(), orderID, actorFromRequest(r), req.Reason, requestID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, order, requestID)
}

// StatusHistory handles GET /orders/{id}/history requests
func (h *Handler) StatusHistory(w http.ResponseWriter, r *http.Request, orderID int) {
	requestID := logger.GenerateRequestID()

	history, err := h.service.StatusHistory(r.Context(), orderID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, history, requestID)
}

// prepUpdateRequest is the body of POST /orders/{id}/items/{item_id}/status
type prepUpdateRequest struct {
	PrepStatus string `json:"prep_status"`
}

// UpdateItemPrepStatus handles POST /orders/{id}/items/{item_id}/status requests
func (h *Handler) UpdateItemPrepStatus(w http.ResponseWriter, r *http.Request, orderID, itemID int) {
	requestID := logger.GenerateRequestID()

	var req prepUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}

	item, err := h.service.UpdateItemPrepStatus(r.Context(), orderID, itemID, models.PrepStatus(req.PrepStatus), requestID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, item, requestID)
}

// RecordPayment handles POST /payments requests
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	var req models.RecordPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}

	result, err := h.service.RecordPayment(r.Context(), &req, actorFromRequest(r), requestID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, result, requestID)
}

// AttachTip handles POST /tips requests
func (h *Handler) AttachTip(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	var tip models.Tip
	if err := json.NewDecoder(r.Body).Decode(&tip); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}

	recorded, err := h.service.AttachTip(r.Context(), &tip)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusCreated, recorded, requestID)
}

// AdjustStock handles POST /inventory/adjustments requests
func (h *Handler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodPost {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	var req models.AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, "Invalid request body", requestID)
		return
	}

	change, err := h.service.AdjustStock(r.Context(), &req, requestID)
	if err != nil {
		h.writeWorkflowError(w, err, requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, change, requestID)
}

// ListTransactions handles GET /inventory/transactions requests
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	filter, err := transactionFilterFromQuery(r)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	transactions, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		h.logger.Error("db_query_failed", "Failed to list inventory transactions", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, transactions, requestID)
}

// ListAuditEntries handles GET /audit requests
func (h *Handler) ListAuditEntries(w http.ResponseWriter, r *http.Request) {
	requestID := logger.GenerateRequestID()

	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", requestID)
		return
	}

	query, err := auditQueryFromRequest(r)
	if err != nil {
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	entries, err := h.service.ListAuditEntries(r.Context(), query)
	if err != nil {
		h.logger.Error("db_query_failed", "Failed to list audit entries", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
		return
	}

	h.writeJSONResponse(w, http.StatusOK, entries, requestID)
}

// HealthCheck handles GET /health requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", "")
		return
	}

	healthy := h.service.HealthCheck(r.Context())

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "pos-service",
		"healthy":   healthy,
	}

	w.Header().Set("Content-Type", "application/json")

	if healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
		response["status"] = "unhealthy"
	}

	json.NewEncoder(w).Encode(response)
}

// transactionFilterFromQuery parses the /inventory/transactions query string.
func transactionFilterFromQuery(r *http.Request) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	q := r.URL.Query()

	for name, target := range map[string]*int{
		"menu_item_id": &filter.MenuItemID,
		"order_id":     &filter.OrderID,
		"limit":        &filter.Limit,
	} {
		if raw := q.Get(name); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil || v < 0 {
				return filter, fmt.Errorf("%s must be a non-negative integer", name)
			}
			*target = v
		}
	}

	if raw := q.Get("type"); raw != "" {
		filter.Type = models.TransactionType(raw)
	}
	for name, target := range map[string]*time.Time{
		"from": &filter.From,
		"to":   &filter.To,
	} {
		if raw := q.Get(name); raw != "" {
			v, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return filter, fmt.Errorf("%s must be an RFC3339 timestamp", name)
			}
			*target = v
		}
	}

	return filter, nil
}

// auditQueryFromRequest parses the /audit query string.
func auditQueryFromRequest(r *http.Request) (models.AuditQuery, error) {
	var query models.AuditQuery
	q := r.URL.Query()

	query.EntityType = q.Get("entity_type")
	query.Event = q.Get("event")

	if raw := q.Get("entity_id"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return query, fmt.Errorf("entity_id must be a non-negative integer")
		}
		query.EntityID = v
	}
	if raw := q.Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return query, fmt.Errorf("limit must be a non-negative integer")
		}
		query.Limit = v
	}
	if raw := q.Get("since"); raw != "" {
		v, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return query, fmt.Errorf("since must be an RFC3339 timestamp")
		}
		query.Since = v
	}

	return query, nil
}

// actorFromRequest reads the acting staff member's id from the request header.
func actorFromRequest(r *http.Request) *int {
	raw := r.Header.Get("X-Staff-ID")
	if raw == "" {
		return nil
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// writeWorkflowError maps a workflow error kind to an HTTP status.
func (h *Handler) writeWorkflowError(w http.ResponseWriter, err error, requestID string) {
	switch workflow.KindOf(err) {
	case workflow.KindValidation, workflow.KindInsufficientStock:
		h.writeErrorResponse(w, http.StatusBadRequest, err.Error(), requestID)
	case workflow.KindNotFound:
		h.writeErrorResponse(w, http.StatusNotFound, err.Error(), requestID)
	case workflow.KindInvalidTransition, workflow.KindItemsNotReady, workflow.KindInsufficientPayment:
		h.writeErrorResponse(w, http.StatusUnprocessableEntity, err.Error(), requestID)
	case workflow.KindConflict:
		h.writeErrorResponse(w, http.StatusConflict, err.Error(), requestID)
	default:
		h.logger.Error("request_failed", "Unhandled error", requestID, err, nil)
		h.writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", requestID)
	}
}

// writeJSONResponse writes a successful JSON response
func (h *Handler) writeJSONResponse(w http.ResponseWriter, statusCode int, payload interface{}, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", requestID, err, nil)
	}
}

// writeErrorResponse writes an error response in JSON format
func (h *Handler) writeErrorResponse(w http.ResponseWriter, statusCode int, message, requestID string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := map[string]interface{}{
		"error":      message,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"request_id": requestID,
	}

	json.NewEncoder(w).Encode(errorResponse)
}

// withLogging adds request logging middleware
func (h *Handler) withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := logger.GenerateRequestID()

		h.logger.Debug("request_started",
			fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"remote_addr": r.RemoteAddr,
			})

		rw := &responseWriter{ResponseWriter: w, statusCode: 200}

		next(rw, r)

		duration := time.Since(start)
		h.logger.Debug("request_completed",
			fmt.Sprintf("%s %s - %d", r.Method, r.URL.Path, rw.statusCode),
			requestID,
			map[string]interface{}{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status_code": rw.statusCode,
				"duration_ms": duration.Milliseconds(),
			})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
