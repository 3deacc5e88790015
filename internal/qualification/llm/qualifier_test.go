// internal/qualification/llm/qualifier_test.go
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"

	apperrors "lead-qualifier/internal/common/errors"
	"lead-qualifier/internal/common/logger"
	"lead-qualifier/internal/models"
	"lead-qualifier/internal/qualification"
)

// ==========================
// Test Helper Functions
// ==========================

type mockLLM struct {
	response string
	err      error
	prompt   string
}

func (m *mockLLM) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	if len(messages) > 0 && len(messages[0].Parts) > 0 {
		if text, ok := messages[0].Parts[0].(llms.TextContent); ok {
			m.prompt = text.Text
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{
			{Content: m.response},
		},
	}, nil
}

func (m *mockLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	m.prompt = prompt
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func fenced(body string) string {
	return "Sure, here is my answer.\n```json\n" + body + "\n```\nThanks!"
}

const validBody = `{
  "updatedLead": {"email": "jane@acme.com", "companyName": "Acme Corp", "score": 45, "relevanceTag": "Hot lead"},
  "updatedState": {"hasAskedEmail": true, "hasAskedCompany": true, "hasAskedBudget": true,
    "hasAskedTeamSize": false, "hasAskedTimeline": false, "hasFinishedQualifying": false, "hasOfferedCalendly": false},
  "response": "What's your approximate budget?"
}`

func testLead() *models.Lead {
	lead := models.NewLead("lead-1", "jane@acme.com", time.Now())
	lead.ConversationState.HasAskedEmail = true
	lead.AppendMessage(models.RoleUser, "hello, I'm from Acme Corp", time.Now())
	return lead
}

func newTestQualifier(t *testing.T, response string, clamp bool) (*Qualifier, *mockLLM) {
	mock := &mockLLM{response: response}
	gen := NewChatModelGenerator("mock", mock, 256, 0.1)
	return NewQualifier(gen, qualification.DefaultPolicy(), clamp, logger.NewTestLogger(t)), mock
}

// ==========================
// ParseResponse
// ==========================

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"valid", fenced(validBody), false},
		{"null optional strings", fenced(strings.Replace(validBody, `"companyName": "Acme Corp"`, `"companyName": null`, 1)), false},
		{"no fence", validBody, true},
		{"unterminated fence", "```json\n" + validBody, true},
		{"not json", fenced("{updatedLead: nope}"), true},
		{"unknown tag", fenced(strings.Replace(validBody, "Hot lead", "Lukewarm", 1)), true},
		{"missing state flag", fenced(strings.Replace(validBody, `"hasOfferedCalendly": false`, `"other": false`, 1)), true},
		{"string score", fenced(strings.Replace(validBody, `"score": 45`, `"score": "45"`, 1)), true},
		{"empty response", fenced(strings.Replace(validBody, `"What's your approximate budget?"`, `""`, 1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			turn, err := ParseResponse(tt.text)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrExtraction))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 45, turn.Lead.Score)
			assert.Equal(t, models.TagHotLead, turn.Lead.RelevanceTag)
			assert.True(t, turn.State.HasAskedBudget)
			assert.Equal(t, "What's your approximate budget?", turn.Reply)
		})
	}
}

// ==========================
// BuildPrompt
// ==========================

func TestBuildPrompt(t *testing.T) {
	policy := qualification.DefaultPolicy()
	lead := testLead()

	prompt := BuildPrompt(qualification.Request{Message: "hello, I'm from Acme Corp", Lead: lead}, policy)

	assert.Contains(t, prompt, "USER: hello, I'm from Acme Corp")
	assert.Contains(t, prompt, "Latest message: hello, I'm from Acme Corp")
	assert.Contains(t, prompt, `"email": "jane@acme.com"`)
	assert.Contains(t, prompt, `"hasAskedEmail": true`)
	assert.Contains(t, prompt, "very_big_potential keywords (+40 each)")
	assert.Contains(t, prompt, "below 2000: -10")
	assert.Contains(t, prompt, "500 or more: +30")
	assert.Contains(t, prompt, policy.CalendlyLink)
	assert.Contains(t, prompt, "```json")
}

// ==========================
// Qualifier
// ==========================

func TestQualifier_Qualify_TrustsModel(t *testing.T) {
	body := strings.Replace(validBody, `"score": 45`, `"score": 140`, 1)
	body = strings.Replace(body, "Hot lead", "Very big potential customer", 1)
	q, mock := newTestQualifier(t, fenced(body), false)

	turn, err := q.Qualify(context.Background(), qualification.Request{Message: "hi", Lead: testLead()})

	require.NoError(t, err)
	assert.Equal(t, 140, turn.Lead.Score)
	assert.Equal(t, models.TagVeryBigPotential, turn.Lead.RelevanceTag)
	assert.Equal(t, qualification.SourceModel, turn.Source)
	assert.Equal(t, qualification.GateModel, turn.Gate)
	assert.Contains(t, mock.prompt, "Latest message: hi")
}

func TestQualifier_Qualify_ClampsWhenConfigured(t *testing.T) {
	body := strings.Replace(validBody, `"score": 45`, `"score": -30`, 1)
	q, _ := newTestQualifier(t, fenced(body), true)

	turn, err := q.Qualify(context.Background(), qualification.Request{Message: "hi", Lead: testLead()})

	require.NoError(t, err)
	assert.Equal(t, 0, turn.Lead.Score)
	assert.Equal(t, models.TagNotRelevant, turn.Lead.RelevanceTag)
}

func TestQualifier_Qualify_Reconciles(t *testing.T) {
	body := strings.Replace(validBody, `"email": "jane@acme.com"`, `"email": "other@evil.io"`, 1)
	body = strings.Replace(body, `"hasAskedEmail": true`, `"hasAskedEmail": false`, 1)
	body = strings.Replace(body, `"companyName": "Acme Corp"`, `"companyName": ""`, 1)
	q, _ := newTestQualifier(t, fenced(body), false)

	lead := testLead()
	lead.CompanyName = "Acme Corp"
	lead.ConversationState.HasAskedCompany = true

	turn, err := q.Qualify(context.Background(), qualification.Request{Message: "hi", Lead: lead})

	require.NoError(t, err)
	assert.Equal(t, "jane@acme.com", turn.Lead.Email)
	assert.Equal(t, "Acme Corp", turn.Lead.CompanyName)
	assert.True(t, turn.State.HasAskedEmail)
	assert.True(t, turn.State.Covers(lead.ConversationState))
}

func TestQualifier_Qualify_Errors(t *testing.T) {
	t.Run("model failure", func(t *testing.T) {
		mock := &mockLLM{err: errors.New("connection refused")}
		q := NewQualifier(NewChatModelGenerator("mock", mock, 0, 0), nil, false, nil)

		_, err := q.Qualify(context.Background(), qualification.Request{Message: "hi", Lead: testLead()})

		assert.True(t, errors.Is(err, apperrors.ErrModelService))
	})

	t.Run("unparsable answer", func(t *testing.T) {
		q, _ := newTestQualifier(t, "I cannot help with that.", false)

		_, err := q.Qualify(context.Background(), qualification.Request{Message: "hi", Lead: testLead()})

		assert.True(t, errors.Is(err, apperrors.ErrExtraction))
	})

	t.Run("missing lead", func(t *testing.T) {
		q, _ := newTestQualifier(t, fenced(validBody), false)

		_, err := q.Qualify(context.Background(), qualification.Request{Message: "hi"})

		assert.Error(t, err)
	})
}

func TestQualifier_WithFallback(t *testing.T) {
	q, _ := newTestQualifier(t, "no json here", false)
	chain := qualification.NewFallback(q, qualification.NewEngine(nil), logger.NewTestLogger(t))

	turn, err := chain.Qualify(context.Background(), qualification.Request{Message: "hi", Lead: testLead()})

	require.NoError(t, err)
	assert.Equal(t, qualification.SourceRules, turn.Source)
	assert.Equal(t, qualification.GateAskBudget, turn.Gate)
}

// ==========================
// GenAI generator
// ==========================

func TestGenAIGenerator_Generate(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ai/generate", r.URL.Path)
		assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"text":"generated"}`))
	}))
	defer server.Close()

	gen := NewGenAIGenerator(&Config{BaseURL: server.URL, APIKey: "key-1", Timeout: time.Second, MaxTokens: 100, Temperature: 0.3})

	text, err := gen.Generate(context.Background(), "the prompt")

	require.NoError(t, err)
	assert.Equal(t, "generated", text)
	assert.Equal(t, "the prompt", received["prompt"])
	assert.Equal(t, float64(100), received["max_tokens"])
}

func TestGenAIGenerator_Errors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		_, err := NewGenAIGenerator(&Config{BaseURL: server.URL, Timeout: time.Second}).Generate(context.Background(), "p")

		assert.True(t, errors.Is(err, apperrors.ErrModelService))
	})

	t.Run("timeout", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer server.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := NewGenAIGenerator(&Config{BaseURL: server.URL, Timeout: 5 * time.Second}).Generate(ctx, "p")

		assert.True(t, errors.Is(err, apperrors.ErrModelTimeout))
	})
}

// ==========================
// Factory
// ==========================

func TestNew(t *testing.T) {
	q, err := New(&Config{Provider: ProviderNone}, nil, nil)
	require.NoError(t, err)
	assert.Nil(t, q)

	_, err = New(&Config{Provider: ProviderGenAI}, nil, nil)
	assert.Error(t, err)

	_, err = New(&Config{Provider: "gpt"}, nil, nil)
	assert.Error(t, err)

	q, err = New(&Config{Provider: ProviderGenAI, BaseURL: "http://genai"}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, q)
}
