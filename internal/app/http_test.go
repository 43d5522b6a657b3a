package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"shp2imdf/workbench/internal/review"
	"shp2imdf/workbench/internal/upstream"
)

func testHTTP(t *testing.T, converter *fakeConverter) (*httptest.Server, *Service) {
	t.Helper()
	service := testService(converter)
	server := httptest.NewServer(NewHTTPServer(service, "*").Handler())
	t.Cleanup(server.Close)
	return server, service
}

func decodeResponse(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestHTTPHealth(t *testing.T) {
	server, _ := testHTTP(t, &fakeConverter{})
	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload := decodeResponse(t, resp); payload["ok"] != true {
		t.Errorf("unexpected body: %v", payload)
	}
}

func TestHTTPUnknownRoute(t *testing.T) {
	server, _ := testHTTP(t, &fakeConverter{})
	resp, err := http.Get(server.URL + "/api/nope")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if payload := decodeResponse(t, resp); payload["code"] != "NOT_FOUND" {
		t.Errorf("unexpected error envelope: %v", payload)
	}
}

func TestHTTPUnknownSessionEnvelope(t *testing.T) {
	server, _ := testHTTP(t, &fakeConverter{})
	resp, err := http.Get(server.URL + "/api/session/missing/state")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	if payload["code"] != "SESSION_NOT_FOUND" || payload["error"] == "" {
		t.Errorf("unexpected envelope: %v", payload)
	}
}

func TestHTTPExportGateMapsToConflict(t *testing.T) {
	converter := &fakeConverter{}
	server, service := testHTTP(t, converter)
	state := importSession(t, service, converter)

	resp, err := http.Post(server.URL+"/api/session/"+state.ID()+"/export/request", "application/json", nil)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("unvalidated export request should 409, got %d", resp.StatusCode)
	}
	if payload := decodeResponse(t, resp); payload["code"] != "EXPORT_NOT_VALIDATED" {
		t.Errorf("unexpected envelope: %v", payload)
	}
}

func TestHTTPSelectionToggle(t *testing.T) {
	converter := &fakeConverter{}
	server, service := testHTTP(t, converter)
	state := importSession(t, service, converter)

	body := strings.NewReader(`{"feature_id":"unit-1","multi":false}`)
	resp, err := http.Post(server.URL+"/api/session/"+state.ID()+"/selection/toggle", "application/json", body)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	payload := decodeResponse(t, resp)
	selection, _ := payload["selection"].([]any)
	if len(selection) != 1 || selection[0] != "unit-1" {
		t.Errorf("unexpected selection: %v", payload)
	}
}

func TestHTTPExportConfirmStreamsArchive(t *testing.T) {
	converter := &fakeConverter{}
	server, service := testHTTP(t, converter)
	state := importSession(t, service, converter)
	state.SetFeatures(review.Normalize(featurePayloads("unit-1")))
	state.SetValidation(&upstream.ValidationResult{Summary: upstream.ValidationSummary{}})

	converter.ExportFn = func(ctx context.Context, sessionID string) (upstream.Archive, error) {
		return upstream.Archive{Filename: "campus-imdf.zip", Data: []byte("zipbytes")}, nil
	}

	resp, err := http.Post(server.URL+"/api/session/"+state.ID()+"/export/confirm", "application/json", nil)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("Content-Disposition"); !strings.Contains(got, "campus-imdf.zip") {
		t.Errorf("filename not suggested: %q", got)
	}
}

func TestHTTPDeleteFeature(t *testing.T) {
	converter := &fakeConverter{}
	server, service := testHTTP(t, converter)
	state := importSession(t, service, converter)
	state.SetFeatures(review.Normalize(featurePayloads("unit-1")))

	converter.DeleteFeatureFn = func(ctx context.Context, sessionID, featureID string) error {
		return nil
	}
	converter.ListFeaturesFn = func(ctx context.Context, sessionID string) (upstream.FeatureCollection, error) {
		return upstream.FeatureCollection{}, nil
	}

	req, _ := http.NewRequest(http.MethodDelete, server.URL+"/api/session/"+state.ID()+"/features/unit-1", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if payload := decodeResponse(t, resp); payload["ok"] != true {
		t.Errorf("unexpected body: %v", payload)
	}
	if len(state.Features()) != 0 {
		t.Errorf("working set not reloaded after delete")
	}
}

func TestHTTPCORSHeaders(t *testing.T) {
	server, _ := testHTTP(t, &fakeConverter{})
	req, _ := http.NewRequest(http.MethodOptions, server.URL+"/api/session/x/state", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing CORS origin header")
	}
}
