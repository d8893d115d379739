package kev

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestFetchExploited_Catalog(t *testing.T) {
	server := serve(t, http.StatusOK, `{
		"title": "CISA Catalog of Known Exploited Vulnerabilities",
		"catalogVersion": "2024.03.01",
		"count": 3,
		"vulnerabilities": [
			{"cveID": "CVE-2021-44228", "vendorProject": "Apache", "product": "Log4j"},
			{"cveID": ""},
			{"cveID": "CVE-2023-4863", "vendorProject": "Google", "product": "Chromium WebP"}
		]
	}`)

	ids, err := NewClient(server.URL, server.Client()).FetchExploited(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CVE-2021-44228", "CVE-2023-4863"}, ids)
}

func TestFetchExploited_BareArray(t *testing.T) {
	server := serve(t, http.StatusOK, `["CVE-2021-44228", "", {"cveID": "CVE-2023-4863"}]`)

	ids, err := NewClient(server.URL, server.Client()).FetchExploited(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"CVE-2021-44228", "CVE-2023-4863"}, ids)
}

func TestFetchExploited_Errors(t *testing.T) {
	server := serve(t, http.StatusBadGateway, "upstream")
	_, err := NewClient(server.URL, server.Client()).FetchExploited(context.Background())
	assert.Error(t, err)

	server = serve(t, http.StatusOK, `{"vulnerabilities": 7}`)
	_, err = NewClient(server.URL, server.Client()).FetchExploited(context.Background())
	assert.Error(t, err)
}

func TestNewClient_Defaults(t *testing.T) {
	c := NewClient("", nil)
	assert.Equal(t, DefaultURL, c.url)
	assert.NotNil(t, c.httpClient.Transport)
}
