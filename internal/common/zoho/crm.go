// internal/common/zoho/crm.go
package zoho

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	apphttp "lead-qualifier/internal/common/http"
)

// CRMClient talks to the Zoho CRM v3 Leads module.
type CRMClient struct {
	apiKey     string
	oauthToken string
	baseURL    string
	httpClient *apphttp.Client
}

// Lead is a Zoho CRM Lead record. Email is the duplicate-check field.
type Lead struct {
	ID          string `json:"id,omitempty"`
	Email       string `json:"Email"`
	LastName    string `json:"Last_Name"`
	Company     string `json:"Company,omitempty"`
	LeadSource  string `json:"Lead_Source,omitempty"`
	LeadStatus  string `json:"Lead_Status,omitempty"`
	Rating      string `json:"Rating,omitempty"`
	Description string `json:"Description,omitempty"`
}

type upsertResponse struct {
	Data []struct {
		Code    string `json:"code"`
		Action  string `json:"action"`
		Details struct {
			ID string `json:"id"`
		} `json:"details"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"data"`
}

func NewCRMClient(baseURL, apiKey, oauthToken string) *CRMClient {
	if baseURL == "" {
		baseURL = "https://www.zohoapis.com/crm/v3"
	}
	return &CRMClient{
		apiKey:     apiKey,
		oauthToken: oauthToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: apphttp.NewClient(30 * time.Second),
	}
}

func (c *CRMClient) headers() map[string]string {
	h := map[string]string{"Authorization": "Zoho-oauthtoken " + c.oauthToken}
	if c.apiKey != "" {
		h["X-API-Key"] = c.apiKey
	}
	return h
}

// UpsertLead creates or updates the lead matched by email and returns its
// Zoho record id together with the action taken ("insert" or "update").
func (c *CRMClient) UpsertLead(ctx context.Context, lead *Lead) (string, string, error) {
	payload := map[string]interface{}{
		"data":                   []Lead{*lead},
		"duplicate_check_fields": []string{"Email"},
	}

	var resp upsertResponse
	if err := c.httpClient.DoJSON(ctx, http.MethodPost, c.baseURL+"/Leads/upsert", c.headers(), payload, &resp); err != nil {
		return "", "", fmt.Errorf("failed to upsert lead: %w", err)
	}

	if len(resp.Data) == 0 {
		return "", "", fmt.Errorf("no data in response")
	}
	if resp.Data[0].Status != "success" {
		return "", "", fmt.Errorf("lead upsert failed: %s", resp.Data[0].Message)
	}

	return resp.Data[0].Details.ID, resp.Data[0].Action, nil
}

// SearchLeadByEmail returns nil without error when no record matches.
func (c *CRMClient) SearchLeadByEmail(ctx context.Context, email string) (*Lead, error) {
	url := fmt.Sprintf("%s/Leads/search?email=%s", c.baseURL, email)

	var resp struct {
		Data []Lead `json:"data"`
	}
	err := c.httpClient.DoJSON(ctx, http.MethodGet, url, c.headers(), nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to search lead: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	return &resp.Data[0], nil
}
