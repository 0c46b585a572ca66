package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/carvalue/internal/search"
	"github.com/sells-group/carvalue/internal/validate"
)

const internalErrorMessage = "An error occurred while processing your request."

const (
	maxBodyBytes  = 1 << 20
	maxFormMemory = 1 << 20
)

// field accepts a JSON string or number so {"year": 2015} and {"year": "2015"}
// decode the same way.
type field string

func (f *field) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = field(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = field(n.String())
	return nil
}

type estimateBody struct {
	Year    field `json:"year"`
	Make    field `json:"make"`
	Model   field `json:"model"`
	Mileage field `json:"mileage"`
}

type errorResponse struct {
	Error string          `json:"error"`
	Kind  validate.Kind   `json:"kind,omitempty"`
	Field string          `json:"field,omitempty"`
	Input *search.Request `json:"input,omitempty"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			zap.L().Warn("api: health check failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) estimate(w http.ResponseWriter, r *http.Request) {
	req, err := decodeEstimate(w, r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	res, err := h.search.Lookup(r.Context(), req)
	if err != nil {
		h.writeLookupError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *handler) listings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := h.search.Listings(r.Context(), q.Get("year"), q.Get("make"), q.Get("model"))
	if err != nil {
		req := search.Request{Year: q.Get("year"), Make: q.Get("make"), Model: q.Get("model")}
		h.writeLookupError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) writeLookupError(w http.ResponseWriter, req search.Request, err error) {
	var verr *validate.Error
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: verr.Message,
			Kind:  verr.Kind,
			Field: verr.Field,
			Input: &req,
		})
	case errors.Is(err, search.ErrNoVehicles):
		msg := fmt.Sprintf("No vehicles found for %s %s %s",
			strings.TrimSpace(req.Year), strings.TrimSpace(req.Make), strings.TrimSpace(req.Model))
		writeJSON(w, http.StatusNotFound, errorResponse{Error: msg, Input: &req})
	default:
		zap.L().Error("api: lookup failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: internalErrorMessage})
	}
}

// decodeEstimate reads a JSON body, or form values for any other content
// type. Bodies over maxBodyBytes are rejected.
func decodeEstimate(w http.ResponseWriter, r *http.Request) (search.Request, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/json":
		var body estimateBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return search.Request{}, err
		}
		return search.Request{
			Year:    string(body.Year),
			Make:    string(body.Make),
			Model:   string(body.Model),
			Mileage: string(body.Mileage),
		}, nil
	case "multipart/form-data":
		if err := r.ParseMultipartForm(maxFormMemory); err != nil {
			return search.Request{}, err
		}
	default:
		if err := r.ParseForm(); err != nil {
			return search.Request{}, err
		}
	}
	return search.Request{
		Year:    r.PostForm.Get("year"),
		Make:    r.PostForm.Get("make"),
		Model:   r.PostForm.Get("model"),
		Mileage: r.PostForm.Get("mileage"),
	}, nil
}

// writeJSON encodes v before writing the status, so a value that cannot be
// encoded becomes a 500 with a JSON error body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("api: encode response", zap.Int("status", status), zap.Error(err))
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: internalErrorMessage})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		zap.L().Warn("api: write response", zap.Error(err))
	}
}
