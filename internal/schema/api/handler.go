package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	httperr "github.com/jeremylongshore/diagnosticpro-schema-sql/internal/core/errors"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/entities"
	"github.com/jeremylongshore/diagnosticpro-schema-sql/internal/schema"
)

// Handler handles contract HTTP requests.
type Handler struct {
	svc *Service
}

// NewHandler creates a new contract API handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// EntitySummary is one entry of GET /v1/contracts.
type EntitySummary struct {
	Entity     string   `json:"entity"`
	Operations []string `json:"operations"`
	FieldCount int      `json:"field_count"`
}

// ContractResponse is the body of GET /v1/contracts/{entity}.
type ContractResponse struct {
	Entity     string             `json:"entity"`
	Operation  string             `json:"operation"`
	Contract   string             `json:"contract"`
	Fields     []schema.FieldInfo `json:"fields"`
	Invariants []string           `json:"invariants"`
}

// ValidateResponse is the body of an accepted record.
type ValidateResponse struct {
	Valid     bool                   `json:"valid"`
	Entity    string                 `json:"entity"`
	Operation string                 `json:"operation"`
	Value     interface{}            `json:"value"`
	Warnings  []string               `json:"warnings"`
	Computed  map[string]interface{} `json:"computed,omitempty"`
}

// requestError carries an HTTP error from a helper back to the handler.
type requestError struct {
	statusCode int
	errorType  string
	message    string
	details    interface{}
}

func (e *requestError) Error() string {
	return e.message
}

func writeError(c *gin.Context, err *requestError) {
	c.JSON(err.statusCode, httperr.ErrorResponse{
		ErrorType: err.errorType,
		Message:   err.message,
		Details:   err.details,
	})
}

// HandleList handles GET /v1/contracts.
func (h *Handler) HandleList(c *gin.Context) {
	list := entities.Entities()
	out := make([]EntitySummary, 0, len(list))
	for _, e := range list {
		contract, err := h.svc.registry.ContractFor(string(e), schema.OpBase)
		if err != nil {
			slog.Error("Contract build failed", "entity", e, "error", err)
			writeError(c, &requestError{
				statusCode: http.StatusInternalServerError,
				errorType:  httperr.HttpInternalError,
				message:    "Failed to build contracts",
			})
			return
		}
		ops := entities.Operations(e)
		names := make([]string, len(ops))
		for i, op := range ops {
			names[i] = string(op)
		}
		out = append(out, EntitySummary{
			Entity:     string(e),
			Operations: names,
			FieldCount: len(contract.Fields),
		})
	}
	c.JSON(http.StatusOK, out)
}

// HandleGet handles GET /v1/contracts/{entity}.
func (h *Handler) HandleGet(c *gin.Context) {
	entity, op, contract, reqErr := h.resolve(c)
	if reqErr != nil {
		writeError(c, reqErr)
		return
	}
	c.JSON(http.StatusOK, ContractResponse{
		Entity:     string(entity),
		Operation:  string(op),
		Contract:   contract.Name,
		Fields:     contract.Describe(),
		Invariants: contract.InvariantNames(),
	})
}

// HandleValidate handles POST /v1/contracts/{entity}/validate.
func (h *Handler) HandleValidate(c *gin.Context) {
	entity, op, contract, reqErr := h.resolve(c)
	if reqErr != nil {
		writeError(c, reqErr)
		return
	}

	candidate, reqErr := h.readRecord(c)
	if reqErr != nil {
		writeError(c, reqErr)
		return
	}

	out, err := h.svc.engine.ValidateOp(contract, op, candidate)
	if err != nil {
		var detailer schema.ValidationDetailer
		if errors.As(err, &detailer) {
			h.svc.metrics.IncrementRecordValidation(string(entity), string(op), false)
			slog.Debug("Record rejected", "entity", entity, "operation", op, "error", err)
			writeError(c, &requestError{
				statusCode: http.StatusUnprocessableEntity,
				errorType:  httperr.HttpContractViolationError,
				message:    err.Error(),
				details:    detailer.Details(),
			})
			return
		}
		slog.Error("Record validation failed", "entity", entity, "operation", op, "error", err)
		writeError(c, &requestError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to validate record",
		})
		return
	}
	h.svc.metrics.IncrementRecordValidation(string(entity), string(op), true)

	warnings := out.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	resp := ValidateResponse{
		Valid:     true,
		Entity:    string(entity),
		Operation: string(op),
		Value:     out.Value,
		Warnings:  warnings,
	}
	if op == schema.OpResponse {
		resp.Computed = entities.Computed(out.Value, h.svc.engine.Now())
	}
	c.JSON(http.StatusOK, resp)
}

// resolve maps the path entity and ?op= query to a contract.
func (h *Handler) resolve(c *gin.Context) (entities.Entity, schema.Operation, *schema.Contract, *requestError) {
	entity, err := entities.ParseEntity(c.Param("entity"))
	if err != nil {
		return "", "", nil, &requestError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpEntityNotFoundError,
			message:    err.Error(),
		}
	}
	op, err := schema.ParseOperation(c.Query("op"))
	if err != nil {
		return "", "", nil, &requestError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpUnsupportedOperationError,
			message:    err.Error(),
		}
	}

	contract, err := h.svc.registry.ContractFor(string(entity), op)
	switch {
	case errors.Is(err, schema.ErrNotFound):
		return "", "", nil, &requestError{
			statusCode: http.StatusNotFound,
			errorType:  httperr.HttpEntityNotFoundError,
			message:    err.Error(),
		}
	case errors.Is(err, schema.ErrUnsupportedOperation):
		return "", "", nil, &requestError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpUnsupportedOperationError,
			message:    err.Error(),
		}
	case err != nil:
		slog.Error("Contract build failed", "entity", entity, "operation", op, "error", err)
		return "", "", nil, &requestError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to build contract",
		}
	}
	return entity, op, contract, nil
}

// readRecord reads the size-limited body as one JSON object.
func (h *Handler) readRecord(c *gin.Context) (map[string]interface{}, *requestError) {
	maxBytes := int64(h.svc.maxBodySizeBytes)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBytes+1)) // +1 to detect oversized requests
	if err != nil {
		slog.Error("Failed to read request body", "error", err)
		return nil, &requestError{
			statusCode: http.StatusInternalServerError,
			errorType:  httperr.HttpInternalError,
			message:    "Failed to read request body",
		}
	}
	if int64(len(body)) > maxBytes {
		slog.Warn("Request body exceeds maximum size", "size", len(body), "max", maxBytes)
		return nil, &requestError{
			statusCode: http.StatusRequestEntityTooLarge,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body exceeds maximum allowed size",
			details: map[string]interface{}{
				"max_size_bytes": maxBytes,
			},
		}
	}

	var candidate map[string]interface{}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&candidate); err != nil || candidate == nil {
		slog.Warn("Invalid JSON body received", "error", err, "payload_size", len(body))
		return nil, &requestError{
			statusCode: http.StatusBadRequest,
			errorType:  httperr.HttpInvalidJsonError,
			message:    "Request body must be a JSON object",
		}
	}
	return candidate, nil
}
