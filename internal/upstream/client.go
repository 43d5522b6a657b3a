// Package upstream is the HTTP client for the external conversion and
// validation service. The service owns the durable session; the workbench
// only mirrors its responses.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Error is a structured failure reported by the converter service.
type Error struct {
	Status int
	Code   string
	Detail string
}

func (e *Error) Error() string {
	return fmt.Sprintf("converter: %s (%d): %s", e.Code, e.Status, e.Detail)
}

// IsSessionGone reports whether the converter no longer knows the session,
// which forces the user back to the import entry point.
func IsSessionGone(err error) bool {
	var upstreamErr *Error
	return errors.As(err, &upstreamErr) && upstreamErr.Status == http.StatusNotFound
}

// IsBadRequest reports a request the converter rejected as malformed or
// failing its own validation.
func IsBadRequest(err error) bool {
	var upstreamErr *Error
	if !errors.As(err, &upstreamErr) {
		return false
	}
	return upstreamErr.Status == http.StatusBadRequest || upstreamErr.Status == http.StatusUnprocessableEntity
}

// IsUnauthorized reports an authentication or permission failure.
func IsUnauthorized(err error) bool {
	var upstreamErr *Error
	if !errors.As(err, &upstreamErr) {
		return false
	}
	return upstreamErr.Status == http.StatusUnauthorized || upstreamErr.Status == http.StatusForbidden
}

// Client talks to one converter service instance.
type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// NewWithHTTPClient is used by tests to inject a transport.
func NewWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// CreateSession forwards an upload body (multipart form or zip) and returns
// the new converter session.
func (c *Client) CreateSession(ctx context.Context, contentType string, body io.Reader) (ImportResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/import", body)
	if err != nil {
		return ImportResult{}, fmt.Errorf("build import request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	var result ImportResult
	if err := c.send(req, &result); err != nil {
		return ImportResult{}, err
	}
	return result, nil
}

func (c *Client) ListFiles(ctx context.Context, sessionID string) ([]ImportedFile, error) {
	var payload struct {
		Files []ImportedFile `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.sessionPath(sessionID, "files"), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Files, nil
}

// DetectAll re-runs filename/geometry classification over every file.
func (c *Client) DetectAll(ctx context.Context, sessionID string) ([]ImportedFile, error) {
	var payload struct {
		Files []ImportedFile `json:"files"`
	}
	if err := c.doJSON(ctx, http.MethodPost, c.sessionPath(sessionID, "detect"), nil, &payload); err != nil {
		return nil, err
	}
	return payload.Files, nil
}

func (c *Client) PatchFile(ctx context.Context, sessionID, stem string, patch FilePatch) (FilePatchResult, error) {
	var result FilePatchResult
	path := c.sessionPath(sessionID, "files") + "/" + url.PathEscape(stem)
	if err := c.doJSON(ctx, http.MethodPatch, path, patch, &result); err != nil {
		return FilePatchResult{}, err
	}
	return result, nil
}

func (c *Client) GetWizard(ctx context.Context, sessionID string) (WizardState, error) {
	return c.wizardCall(ctx, http.MethodGet, c.sessionPath(sessionID, "wizard"), nil)
}

func (c *Client) PatchProject(ctx context.Context, sessionID string, project Project) (WizardState, error) {
	return c.wizardCall(ctx, http.MethodPatch, c.sessionPath(sessionID, "wizard/project"), project)
}

func (c *Client) PatchLevels(ctx context.Context, sessionID string, items []LevelItem) (WizardState, error) {
	body := map[string]any{"items": items}
	return c.wizardCall(ctx, http.MethodPatch, c.sessionPath(sessionID, "wizard/levels"), body)
}

func (c *Client) PatchBuildings(ctx context.Context, sessionID string, buildings []Building) (WizardState, error) {
	body := map[string]any{"buildings": buildings}
	return c.wizardCall(ctx, http.MethodPatch, c.sessionPath(sessionID, "wizard/buildings"), body)
}

// PatchMappings sends only the populated slices; nil pointers leave the
// converter's copy untouched.
func (c *Client) PatchMappings(ctx context.Context, sessionID string, unit *UnitMapping, opening *OpeningMapping, fixture *FixtureMapping, detailConfirmed *bool) (WizardState, error) {
	body := map[string]any{}
	if unit != nil {
		body["unit"] = unit
	}
	if opening != nil {
		body["opening"] = opening
	}
	if fixture != nil {
		body["fixture"] = fixture
	}
	if detailConfirmed != nil {
		body["detail_confirmed"] = *detailConfirmed
	}
	return c.wizardCall(ctx, http.MethodPatch, c.sessionPath(sessionID, "wizard/mappings"), body)
}

func (c *Client) PatchFootprint(ctx context.Context, sessionID string, footprint json.RawMessage) (WizardState, error) {
	return c.wizardCall(ctx, http.MethodPatch, c.sessionPath(sessionID, "wizard/footprint"), footprint)
}

// UploadCompanyMappings submits a company code-mapping document.
func (c *Client) UploadCompanyMappings(ctx context.Context, sessionID, filename string, document []byte) (CompanyMappingsResult, error) {
	var buffer bytes.Buffer
	writer := multipart.NewWriter(&buffer)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return CompanyMappingsResult{}, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(document); err != nil {
		return CompanyMappingsResult{}, fmt.Errorf("write upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return CompanyMappingsResult{}, fmt.Errorf("close upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sessionPath(sessionID, "config/company-mappings"), &buffer)
	if err != nil {
		return CompanyMappingsResult{}, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result CompanyMappingsResult
	if err := c.send(req, &result); err != nil {
		return CompanyMappingsResult{}, err
	}
	return result, nil
}

func (c *Client) SearchAddress(ctx context.Context, query, language string) ([]GeocodeMatch, error) {
	path := c.baseURL + "/api/geocode/search?q=" + url.QueryEscape(query) + "&language=" + url.QueryEscape(language)
	var payload struct {
		Matches []GeocodeMatch `json:"matches"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &payload); err != nil {
		return nil, err
	}
	return payload.Matches, nil
}

func (c *Client) ListFeatures(ctx context.Context, sessionID string) (FeatureCollection, error) {
	var collection FeatureCollection
	if err := c.doJSON(ctx, http.MethodGet, c.sessionPath(sessionID, "features"), nil, &collection); err != nil {
		return FeatureCollection{}, err
	}
	return collection, nil
}

// GenerateDraft materializes the draft feature set from the wizard state.
func (c *Client) GenerateDraft(ctx context.Context, sessionID string) (GenerateResult, error) {
	var result GenerateResult
	if err := c.doJSON(ctx, http.MethodPost, c.sessionPath(sessionID, "generate"), nil, &result); err != nil {
		return GenerateResult{}, err
	}
	return result, nil
}

// PatchFeature updates one feature's properties and returns the canonical
// record the converter echoed back.
func (c *Client) PatchFeature(ctx context.Context, sessionID, featureID string, properties map[string]any) (map[string]any, error) {
	body := map[string]any{"properties": properties}
	path := c.sessionPath(sessionID, "features") + "/" + url.PathEscape(featureID)
	var record map[string]any
	if err := c.doJSON(ctx, http.MethodPatch, path, body, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func (c *Client) DeleteFeature(ctx context.Context, sessionID, featureID string) error {
	path := c.sessionPath(sessionID, "features") + "/" + url.PathEscape(featureID)
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// Bulk issues one bulk mutation as a single round trip. Callers reload the
// full feature list afterwards because the converter may materialize new or
// removed ids.
func (c *Client) Bulk(ctx context.Context, sessionID string, request BulkRequest) error {
	return c.doJSON(ctx, http.MethodPost, c.sessionPath(sessionID, "features/bulk"), request, nil)
}

func (c *Client) Validate(ctx context.Context, sessionID string) (ValidationResult, error) {
	var result ValidationResult
	if err := c.doJSON(ctx, http.MethodPost, c.sessionPath(sessionID, "validate"), nil, &result); err != nil {
		return ValidationResult{}, err
	}
	return result, nil
}

func (c *Client) Autofix(ctx context.Context, sessionID string, applyDestructive bool) (AutofixResult, error) {
	body := map[string]any{"apply_prompted": applyDestructive}
	var result AutofixResult
	if err := c.doJSON(ctx, http.MethodPost, c.sessionPath(sessionID, "autofix"), body, &result); err != nil {
		return AutofixResult{}, err
	}
	return result, nil
}

// Export downloads the IMDF archive. The suggested filename comes from the
// Content-Disposition header.
func (c *Client) Export(ctx context.Context, sessionID string) (Archive, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.sessionPath(sessionID, "export"), nil)
	if err != nil {
		return Archive{}, fmt.Errorf("build export request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return Archive{}, fmt.Errorf("export request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return Archive{}, decodeError(resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Archive{}, fmt.Errorf("read export archive: %w", err)
	}
	return Archive{Filename: suggestedFilename(resp), Data: data}, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	return c.doJSON(ctx, http.MethodDelete, c.baseURL+"/api/session/"+url.PathEscape(sessionID), nil, nil)
}

func (c *Client) sessionPath(sessionID, suffix string) string {
	return c.baseURL + "/api/session/" + url.PathEscape(sessionID) + "/" + suffix
}

func (c *Client) wizardCall(ctx context.Context, method, path string, body any) (WizardState, error) {
	var payload struct {
		Wizard WizardState `json:"wizard"`
	}
	if err := c.doJSON(ctx, method, path, body, &payload); err != nil {
		return WizardState{}, err
	}
	return payload.Wizard, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("converter request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode converter response: %w", err)
	}
	return nil
}

// decodeError maps a failure response onto the structured taxonomy. The
// converter reports {"detail", "code"}; anything unreadable falls back to a
// generic code derived from the status.
func decodeError(resp *http.Response) error {
	payload := struct {
		Detail string `json:"detail"`
		Code   string `json:"code"`
	}{}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	_ = json.Unmarshal(raw, &payload)

	code := payload.Code
	if code == "" {
		switch {
		case resp.StatusCode == http.StatusNotFound:
			code = "NOT_FOUND"
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
			code = "BAD_REQUEST"
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			code = "UNAUTHORIZED"
		case resp.StatusCode >= http.StatusInternalServerError:
			code = "SERVER_ERROR"
		default:
			code = "CONVERTER_ERROR"
		}
	}
	detail := payload.Detail
	if detail == "" {
		detail = strings.TrimSpace(string(raw))
	}
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}
	return &Error{Status: resp.StatusCode, Code: code, Detail: detail}
}

func suggestedFilename(resp *http.Response) string {
	header := resp.Header.Get("Content-Disposition")
	if header == "" {
		return "imdf-export.zip"
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "imdf-export.zip"
	}
	if name := params["filename"]; name != "" {
		return name
	}
	return "imdf-export.zip"
}
