package e2e

import (
	"context"
	"net/http"
	"testing"

	"github.com/datasynth/api/internal/model"
)

func seedTable(t *testing.T, ta *testApp, table string, n int) {
	t.Helper()

	schema := &model.TableSchema{
		TableName: table,
		Fields: []model.FieldSpec{
			{Name: "id", Type: model.FieldTypeInteger, Mode: model.FieldModeRequired},
			{Name: "name", Type: model.FieldTypeString, Mode: model.FieldModeNullable},
		},
	}
	records := make([]model.Record, n)
	for i := range records {
		r := model.NewRecord(2)
		r.Set("id", int64(i+1))
		r.Set("name", "row")
		records[i] = r
	}
	if _, err := ta.store.WriteTable(context.Background(), table, schema, records); err != nil {
		t.Fatalf("failed to seed %s: %v", table, err)
	}
}

func TestTables_List(t *testing.T) {
	ta := setupApp(t)
	seedTable(t, ta, "synthetic_customers", 3)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/tables", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	tables, _ := body["tables"].([]interface{})
	if len(tables) != 1 || tables[0] != "synthetic_customers" {
		t.Errorf("expected [synthetic_customers], got %v", body["tables"])
	}
}

func TestTables_RowsAndColumns(t *testing.T) {
	ta := setupApp(t)
	seedTable(t, ta, "synthetic_customers", 30)

	resp, err := doAuthRequest(t, ta.app, http.MethodGet, "/api/tables/synthetic_customers/rows?limit=5", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body := parseJSON(t, resp)
	if body["count"] != float64(5) {
		t.Errorf("expected 5 rows, got %v", body["count"])
	}

	resp, err = doAuthRequest(t, ta.app, http.MethodGet, "/api/tables/synthetic_customers/columns", "")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assertStatus(t, resp, http.StatusOK)

	body = parseJSON(t, resp)
	columns, _ := body["columns"].([]interface{})
	if len(columns) != 2 {
		t.Fatalf("expected 2 columns, got %v", body["columns"])
	}
	first := columns[0].(map[string]interface{})
	if first["name"] != "id" {
		t.Errorf("expected first column 'id', got %v", first["name"])
	}
}

func TestTables_Errors(t *testing.T) {
	ta := setupApp(t)

	cases := []struct {
		path string
		want int
	}{
		{"/api/tables/bad-name;drop/rows", http.StatusBadRequest},
		{"/api/tables/users/rows", http.StatusBadRequest},
		{"/api/tables/synthetic_missing/columns", http.StatusNotFound},
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
