package e2e

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSchemaSaveAndLatest(t *testing.T) {
	ta := setupApp(t)

	body := `{"table_name": "Order Lines", "schema": {"fields": [{"name": "id", "type": "INTEGER"}]}}`
	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schemas", body)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusCreated)

	saved := parseJSON(t, resp)
	filename, _ := saved["filename"].(string)
	if !strings.HasPrefix(filename, "order_lines_") || !strings.HasSuffix(filename, ".json") {
		t.Errorf("unexpected schema filename %q", filename)
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/schemas/latest", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	var latest map[string]interface{}
	if err := json.Unmarshal([]byte(readBody(t, resp)), &latest); err != nil {
		t.Fatalf("latest schema is not JSON: %v", err)
	}
	if _, ok := latest["fields"]; !ok {
		t.Error("expected 'fields' in latest schema")
	}
}

func TestSchemaSave_Invalid(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodPost, "/api/schemas", `{"table_name": "orders"}`)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestSchemaLatest_NoneSaved(t *testing.T) {
	ta := setupApp(t)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/schemas/latest", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusNotFound)
}

func TestArtifacts_LatestAndDownload(t *testing.T) {
	ta := setupApp(t)

	if err := os.MkdirAll(ta.cfg.Storage.OutputDir, 0o755); err != nil {
		t.Fatal(err)
	}
	csv := "id,name\n1,alpha\n"
	name := "orders_20240309_140507.csv"
	if err := os.WriteFile(filepath.Join(ta.cfg.Storage.OutputDir, name), []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/artifacts/latest?type=csv", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if got := readBody(t, resp); got != csv {
		t.Errorf("expected latest csv body %q, got %q", csv, got)
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/artifacts/download/"+name, "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, name) {
		t.Errorf("expected attachment %s, got %q", name, cd)
	}
}

func TestArtifacts_Errors(t *testing.T) {
	ta := setupApp(t)

	cases := []struct {
		path string
		want int
	}{
		{"/api/artifacts/latest", http.StatusBadRequest},
		{"/api/artifacts/latest?type=xml", http.StatusBadRequest},
		{"/api/artifacts/latest?type=parquet", http.StatusNotFound},
		{"/api/artifacts/download/missing.csv", http.StatusNotFound},
	}

	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			resp, err := doAuthRequest(t, ta.app, http.MethodGet, tc.path, "")
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			assertStatus(t, resp, tc.want)
		})
	}
}
