package chat

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salesboard/internal/models"
)

func smallTable(rows int) *models.Table {
	data := make([][]models.Value, rows)
	for i := range data {
		data[i] = []models.Value{models.StringValue("Acme, Ltda"), models.NumberValue(float64(i))}
	}
	return models.MustTable([]string{"RAZÃO SOCIAL", "VALOR"}, data)
}

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:     endpoint,
		APIKey:       "sk-test",
		Model:        "gpt-test",
		SystemPrompt: "system",
		MaxRows:      2,
		Timeout:      time.Second,
	}
}

func TestAsk(t *testing.T) {
	var got completionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"O maior cliente é Acme."}}]}`))
	}))
	defer srv.Close()

	answer, truncated, err := NewClient(testConfig(srv.URL+"/v1/")).Ask(context.Background(), smallTable(3), "  Quem compra mais? ")
	require.NoError(t, err)
	assert.Equal(t, "O maior cliente é Acme.", answer)
	assert.True(t, truncated)

	assert.Equal(t, "gpt-test", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, message{Role: "system", Content: "system"}, got.Messages[0])
	assert.Equal(t, "user", got.Messages[1].Role)
	assert.True(t, strings.HasSuffix(got.Messages[1].Content, "Pergunta: Quem compra mais?"))
	assert.Contains(t, got.Messages[1].Content, "\"Acme, Ltda\",1\n")
	assert.NotContains(t, got.Messages[1].Content, "\"Acme, Ltda\",2\n")
}

func TestAskServiceErrors(t *testing.T) {
	for _, tc := range []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"Incorrect API key provided"}}`, message: "Incorrect API key provided"},
		{name: "plain error", status: http.StatusInternalServerError, body: "boom", message: "boom"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, message: "response has no choices"},
		{name: "bad json", status: http.StatusOK, body: `{`, message: "decode response"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, _, err := NewClient(testConfig(srv.URL)).Ask(context.Background(), smallTable(1), "q")
			var ext *ExternalServiceError
			require.ErrorAs(t, err, &ext)
			assert.Equal(t, "chat", ext.Service)
			assert.Equal(t, tc.status, ext.Status)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestAskUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, _, err := NewClient(testConfig(url)).Ask(context.Background(), smallTable(1), "q")
	var ext *ExternalServiceError
	require.ErrorAs(t, err, &ext)
	assert.Zero(t, ext.Status)
}

func TestAskWithoutKey(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""

	_, _, err := NewClient(cfg).Ask(context.Background(), smallTable(1), "q")
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAskEmptyQuestion(t *testing.T) {
	_, _, err := NewClient(testConfig("http://127.0.0.1:1")).Ask(context.Background(), smallTable(1), "   ")
	assert.Error(t, err)
}

func TestSerialize(t *testing.T) {
	out, truncated, err := Serialize(smallTable(2), 5)
	require.NoError(t, err)
	assert.False(t, truncated)
	assert.Equal(t, "RAZÃO SOCIAL,VALOR\n\"Acme, Ltda\",0\n\"Acme, Ltda\",1\n", out)

	out, truncated, err = Serialize(smallTable(10), 1)
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, 2, strings.Count(out, "\n"))

	tbl := models.MustTable([]string{"A", "B"}, [][]models.Value{{models.NullValue(), models.StringValue("x")}})
	out, _, err = Serialize(tbl, 0)
	require.NoError(t, err)
	assert.Equal(t, "A,B\n,x\n", out)
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig("http://x")
	require.NoError(t, cfg.Validate())
	cfg.MaxRows = 0
	assert.Error(t, cfg.Validate())
	cfg = testConfig("")
	assert.Error(t, cfg.Validate())
}
