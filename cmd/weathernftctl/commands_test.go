package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedRequest struct {
	Method string
	URI    string
	Body   string
}

func newFakeAPI(t *testing.T, status int, response string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var got []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got = append(got, recordedRequest{Method: r.Method, URI: r.URL.RequestURI(), Body: string(body)})
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

func execute(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--addr", addr}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommands_Requests(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		method string
		uri    string
		body   string
	}{
		{"dashboard", []string{"dashboard"}, http.MethodGet, "/api/dashboard", ""},
		{"logs", []string{"logs", "--level", "warning", "--limit", "5"}, http.MethodGet, "/api/admin/logs?level=warning&limit=5", ""},
		{"events list", []string{"events", "list", "--status", "active", "--rarity", "rare"}, http.MethodGet, "/api/events?rarity=rare&status=active", ""},
		{"events generate", []string{"events", "generate", "--lat", "64.2", "--lng", "-149.5", "--rarity", "epic"}, http.MethodPost, "/api/events/generate", `{"forceRarity":"epic","lat":64.2,"lng":-149.5}`},
		{"events capture", []string{"events", "capture", "evt_1", "--user", "user_001"}, http.MethodPost, "/api/events/evt_1/capture", `{"userId":"user_001"}`},
		{"events boost", []string{"events", "boost", "evt_1", "--multiplier", "2"}, http.MethodPost, "/api/admin/events/evt_1/boost", `{"boostMultiplier":2}`},
		{"events deactivate", []string{"events", "deactivate", "evt_1", "--reason", "spam"}, http.MethodDelete, "/api/admin/events/evt_1?reason=spam", ""},
		{"settings get", []string{"settings", "get"}, http.MethodGet, "/api/admin/settings", ""},
		{"algorithms toggle", []string{"algorithms", "toggle", "StormChaser-v4", "--enabled=false"}, http.MethodPost, "/api/ai/models/StormChaser-v4/toggle", `{"enabled":false}`},
		{"algorithms list", []string{"algorithms", "list"}, http.MethodGet, "/api/ai/models", ""},
		{"nft owner", []string{"nft", "owner", "tz1ABC...DEF"}, http.MethodGet, "/api/nft/owner/tz1ABC...DEF", ""},
		{"nft transfer", []string{"nft", "transfer", "3", "--from", "user_001", "--to", "user_002"}, http.MethodPost, "/api/nft/transfer", `{"tokenId":3,"from":"user_001","to":"user_002"}`},
		{"nft stats", []string{"nft", "stats"}, http.MethodGet, "/api/stats", ""},
		{"algorithms retrain", []string{"algorithms", "retrain", "AquaDetect-v2"}, http.MethodPost, "/api/ai/models/AquaDetect-v2/retrain", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newFakeAPI(t, http.StatusOK, `{"success":true,"data":{"ok":true}}`)

			out, err := execute(t, srv.URL, tt.args...)
			require.NoError(t, err)
			assert.Equal(t, "{\n  \"ok\": true\n}\n", out)

			require.Len(t, *got, 1)
			req := (*got)[0]
			assert.Equal(t, tt.method, req.Method)
			assert.Equal(t, tt.uri, req.URI)
			if tt.body == "" {
				assert.Empty(t, req.Body)
			} else {
				assert.JSONEq(t, tt.body, req.Body)
			}
		})
	}
}

func TestCommands_APIError(t *testing.T) {
	srv, _ := newFakeAPI(t, http.StatusConflict, `{"success":false,"error":"capture of evt_1 rejected: no_slots"}`)

	_, err := execute(t, srv.URL, "events", "capture", "evt_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no_slots")
	assert.Contains(t, err.Error(), "409")
}

func TestCommands_ArgumentValidation(t *testing.T) {
	srv, got := newFakeAPI(t, http.StatusOK, `{"success":true}`)

	_, err := execute(t, srv.URL, "events", "boost")
	require.Error(t, err)

	_, err = execute(t, srv.URL, "nft", "transfer", "first", "--from", "user_001", "--to", "user_002")
	require.Error(t, err)

	_, err = execute(t, srv.URL, "nft", "transfer", "1", "--from", "user_001")
	require.Error(t, err)
	assert.Empty(t, *got)
}

func TestAddrFromEnvironment(t *testing.T) {
	srv, got := newFakeAPI(t, http.StatusOK, `{"success":true,"data":[]}`)
	t.Setenv("WEATHERNFT_ADDR", srv.URL)

	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{"settings", "get"})
	require.NoError(t, cmd.Execute())
	assert.Len(t, *got, 1)
}

func TestPrintJSON(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, printJSON(&out, json.RawMessage(`{"a":[1,2]}`)))
	assert.Equal(t, "{\n  \"a\": [\n    1,\n    2\n  ]\n}\n", out.String())

	require.Error(t, printJSON(&out, json.RawMessage(`{`)))
}
