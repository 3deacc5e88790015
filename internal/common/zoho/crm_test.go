// internal/common/zoho/crm_test.go
package zoho

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRMClient_UpsertLead(t *testing.T) {
	var payload map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/crm/v3/Leads/upsert", r.URL.Path)
		assert.Equal(t, "Zoho-oauthtoken tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(`{"data":[{"code":"SUCCESS","action":"insert","status":"success","details":{"id":"5725767000000524157"}}]}`))
	}))
	defer server.Close()

	client := NewCRMClient(server.URL+"/crm/v3/", "", "tok")

	id, action, err := client.UpsertLead(context.Background(), &Lead{Email: "jane@acme.com", LastName: "jane", Company: "Acme Corp"})

	require.NoError(t, err)
	assert.Equal(t, "5725767000000524157", id)
	assert.Equal(t, "insert", action)
	assert.Equal(t, []interface{}{"Email"}, payload["duplicate_check_fields"])
	records := payload["data"].([]interface{})
	assert.Equal(t, "Acme Corp", records[0].(map[string]interface{})["Company"])
}

func TestCRMClient_UpsertLead_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusUnauthorized, `{"code":"INVALID_TOKEN"}`},
		{"empty data", http.StatusOK, `{"data":[]}`},
		{"record error", http.StatusOK, `{"data":[{"status":"error","message":"required field not found"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, _, err := NewCRMClient(server.URL, "", "tok").UpsertLead(context.Background(), &Lead{Email: "a@b.com", LastName: "a"})

			assert.Error(t, err)
		})
	}
}

func TestCRMClient_SearchLeadByEmail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("email") == "jane@acme.com" {
			_, _ = w.Write([]byte(`{"data":[{"id":"1","Email":"jane@acme.com","Last_Name":"jane"}]}`))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()
	client := NewCRMClient(server.URL, "", "tok")

	lead, err := client.SearchLeadByEmail(context.Background(), "jane@acme.com")
	require.NoError(t, err)
	assert.Equal(t, "1", lead.ID)

	missing, err := client.SearchLeadByEmail(context.Background(), "bob@acme.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
