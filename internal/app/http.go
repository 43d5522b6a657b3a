package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"shp2imdf/workbench/internal/export"
	"shp2imdf/workbench/internal/review"
	"shp2imdf/workbench/internal/upstream"
	"shp2imdf/workbench/internal/wizard"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", s.corsOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.service.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/import" {
		state, err := s.service.Import(r.Context(), r.Header.Get("Content-Type"), r.Body)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"session_id":      state.ID(),
			"files":           state.Files(),
			"cleanup_summary": state.CleanupSummary(),
			"warnings":        state.ImportWarnings(),
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/geocode/search" {
		query := r.URL.Query().Get("q")
		if strings.TrimSpace(query) == "" {
			writeError(w, http.StatusBadRequest, "INVALID_QUERY", "q is required", nil)
			return
		}
		language := r.URL.Query().Get("language")
		if language == "" {
			language = "en"
		}
		matches, err := s.service.SearchAddress(r.Context(), query, language)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "session" {
		s.handleSession(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		if r.Method == http.MethodDelete {
			if err := s.service.EndSession(ctx, sessionID); err != nil {
				s.writeFailure(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	switch {
	case r.Method == http.MethodGet && len(rest) == 1 && rest[0] == "state":
		view, err := s.service.StateView(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "detect":
		files, err := s.service.DetectAll(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})

	case r.Method == http.MethodPatch && len(rest) == 2 && rest[0] == "files":
		var patch upstream.FilePatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.PatchFile(ctx, sessionID, rest[1], patch)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "learning" && rest[1] == "accept":
		files, err := s.service.AcceptLearning(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": files})

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "learning" && rest[1] == "dismiss":
		if err := s.service.DismissLearning(ctx, sessionID); err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) >= 1 && rest[0] == "wizard":
		s.handleWizard(w, r, sessionID, rest[1:])

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "config" && rest[1] == "company-mappings":
		s.handleCompanyMappings(w, r, sessionID)

	case len(rest) >= 1 && rest[0] == "features":
		s.handleFeatures(w, r, sessionID, rest[1:])

	case r.Method == http.MethodPut && len(rest) == 1 && rest[0] == "filters":
		var filters review.Filters
		if err := decodeBody(r, &filters); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		visible, err := s.service.SetFilters(ctx, sessionID, filters)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"features": visible, "filters": filters})

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "selection" && rest[1] == "toggle":
		var body struct {
			FeatureID string `json:"feature_id"`
			Multi     bool   `json:"multi"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		selection, err := s.service.ToggleSelection(ctx, sessionID, body.FeatureID, body.Multi)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"selection": selection})

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "selection" && rest[1] == "clear":
		if err := s.service.ClearSelection(ctx, sessionID); err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"selection": []string{}})

	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "undo":
		result, err := s.service.Undo(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "validate":
		result, err := s.service.Validate(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "autofix":
		var body struct {
			ApplyDestructive bool `json:"apply_destructive"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Autofix(ctx, sessionID, body.ApplyDestructive)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "export" && rest[1] == "request":
		if err := s.service.RequestExport(ctx, sessionID); err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case r.Method == http.MethodPost && len(rest) == 2 && rest[0] == "export" && rest[1] == "confirm":
		archive, err := s.service.ConfirmExport(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", archive.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(archive.Data)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleWizard(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	ctx := r.Context()

	if r.Method == http.MethodGet && len(rest) == 0 {
		wizardState, err := s.service.Wizard(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"wizard": wizardState})
		return
	}

	if r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "navigate" {
		var body struct {
			Action string `json:"action"`
			Step   int    `json:"step"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		result, err := s.service.Navigate(ctx, sessionID, body.Action, wizard.Step(body.Step))
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "confirm" {
		result, err := s.service.ConfirmSummary(ctx, sessionID)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	if r.Method != http.MethodPatch || len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	var wizardState upstream.WizardState
	var err error
	switch rest[0] {
	case "project":
		var project upstream.Project
		if decodeErr := decodeBody(r, &project); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", decodeErr.Error(), nil)
			return
		}
		wizardState, err = s.service.PatchProject(ctx, sessionID, project)
	case "levels":
		var body struct {
			Items []upstream.LevelItem `json:"items"`
		}
		if decodeErr := decodeBody(r, &body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", decodeErr.Error(), nil)
			return
		}
		wizardState, err = s.service.PatchLevels(ctx, sessionID, body.Items)
	case "buildings":
		var body struct {
			Buildings []upstream.Building `json:"buildings"`
		}
		if decodeErr := decodeBody(r, &body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", decodeErr.Error(), nil)
			return
		}
		wizardState, err = s.service.PatchBuildings(ctx, sessionID, body.Buildings)
	case "mappings":
		var body struct {
			Unit            *upstream.UnitMapping    `json:"unit"`
			Opening         *upstream.OpeningMapping `json:"opening"`
			Fixture         *upstream.FixtureMapping `json:"fixture"`
			DetailConfirmed *bool                    `json:"detail_confirmed"`
		}
		if decodeErr := decodeBody(r, &body); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", decodeErr.Error(), nil)
			return
		}
		wizardState, err = s.service.PatchMappings(ctx, sessionID, body.Unit, body.Opening, body.Fixture, body.DetailConfirmed)
	case "footprint":
		payload, readErr := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if readErr != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "invalid footprint body", nil)
			return
		}
		wizardState, err = s.service.PatchFootprint(ctx, sessionID, payload)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wizard": wizardState})
}

func (s *HTTPServer) handleCompanyMappings(w http.ResponseWriter, r *http.Request, sessionID string) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "multipart form with a file field is required", nil)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "file field is required", nil)
		return
	}
	defer file.Close()
	document, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "could not read upload", nil)
		return
	}
	result, err := s.service.UploadCompanyMappings(r.Context(), sessionID, header.Filename, document)
	if err != nil {
		s.writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleFeatures(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	ctx := r.Context()

	switch {
	case r.Method == http.MethodGet && len(rest) == 0:
		reload := r.URL.Query().Get("reload") == "1"
		visible, total, err := s.service.Features(ctx, sessionID, reload)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"features": visible, "total": total})

	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "bulk":
		var request upstream.BulkRequest
		if err := decodeBody(r, &request); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		records, err := s.service.Bulk(ctx, sessionID, request)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"features": records, "total": len(records)})

	case r.Method == http.MethodDelete && len(rest) == 1:
		if err := s.service.DeleteFeature(ctx, sessionID, rest[0]); err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case r.Method == http.MethodPatch && len(rest) == 1:
		var body struct {
			Properties map[string]any `json:"properties"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		record, err := s.service.PatchFeature(ctx, sessionID, rest[0], body.Properties)
		if err != nil {
			s.writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, record)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) writeFailure(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf("workbench: %v", err)
	}
	writeError(w, status, code, message, details)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, export.ErrNotValidated) {
		return http.StatusConflict, "EXPORT_NOT_VALIDATED", "Run validation before exporting", nil
	}
	if errors.Is(err, export.ErrBlocked) {
		return http.StatusConflict, "EXPORT_BLOCKED", err.Error(), nil
	}
	var upstreamErr *upstream.Error
	if errors.As(err, &upstreamErr) {
		return upstreamErr.Status, upstreamErr.Code, upstreamErr.Detail, nil
	}
	return http.StatusInternalServerError, "INTERNAL", "Internal error", nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
