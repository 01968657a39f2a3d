package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/overjt/entitygraphql/internal/executor"
	"github.com/overjt/entitygraphql/internal/schema"
)

func newTestHandler(t *testing.T, opts ...Option) *Handler {
	t.Helper()
	s := schema.NewSchema("")
	query := schema.NewType("Query", schema.TypeKindObject, "")
	s.AddType(query).SetQueryType("Query")
	query.AddMember("hello", "", schema.NamedType("String"))
	query.AddMember("secret", "", schema.NamedType("String")).RequiresAnyRole("admin")
	root := map[string]any{"hello": "world", "secret": "s3cr3t"}
	return New(executor.New(s), root, opts...)
}

type response struct {
	Data   map[string]any `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

func serve(t *testing.T, h http.Handler, req *http.Request) (*httptest.ResponseRecorder, response) {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	var res response
	if w.Code != http.StatusNoContent {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	}
	return w, res
}

func postJSON(body string) *http.Request {
	req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestPost(t *testing.T) {
	h := newTestHandler(t)
	w, res := serve(t, h, postJSON(`{"query":"{ hello }"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"hello": "world"}, res.Data)
	require.Empty(t, res.Errors)
}

func TestGetWithVariables(t *testing.T) {
	h := newTestHandler(t)
	q := url.Values{
		"query":     {`query Q($x: Boolean!) { hello @include(if: $x) }`},
		"variables": {`{"x": false}`},
	}
	req := httptest.NewRequest("GET", "/?"+q.Encode(), nil)
	w, res := serve(t, h, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{}, res.Data)
}

func TestBatch(t *testing.T) {
	h := newTestHandler(t)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, postJSON(`[{"query":"{ hello }"},{"query":"{ a: hello }"}]`))
	require.Equal(t, http.StatusOK, w.Code)

	var out []response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out, 2)
	require.Equal(t, "world", out[0].Data["hello"])
	require.Equal(t, "world", out[1].Data["a"])
}

func TestPrincipalFromHeaders(t *testing.T) {
	h := newTestHandler(t, WithPrincipal(HeaderPrincipal("X-Roles", "X-Policies")))

	_, res := serve(t, h, postJSON(`{"query":"{ secret }"}`))
	require.Nil(t, res.Data["secret"])
	require.Len(t, res.Errors, 1)
	require.Equal(t, executor.CodeForbidden, res.Errors[0].Extensions["code"])

	req := postJSON(`{"query":"{ secret }"}`)
	req.Header.Set("X-Roles", "viewer, admin")
	_, res = serve(t, h, req)
	require.Equal(t, "s3cr3t", res.Data["secret"])
	require.Empty(t, res.Errors)
}

func TestBadRequests(t *testing.T) {
	h := newTestHandler(t)
	for name, tc := range map[string]struct {
		req  *http.Request
		code int
		msg  string
	}{
		"missing query": {postJSON(`{}`), http.StatusBadRequest, "missing 'query'"},
		"invalid json":  {postJSON(`{`), http.StatusBadRequest, "invalid JSON"},
		"empty batch":   {postJSON(`[]`), http.StatusBadRequest, "empty batch"},
		"method":        {httptest.NewRequest("PUT", "/", nil), http.StatusMethodNotAllowed, "method not allowed"},
	} {
		t.Run(name, func(t *testing.T) {
			w, res := serve(t, h, tc.req)
			require.Equal(t, tc.code, w.Code)
			require.Len(t, res.Errors, 1)
			require.Equal(t, tc.msg, res.Errors[0].Message)
		})
	}
}

func TestCORSAndPreflight(t *testing.T) {
	h := newTestHandler(t, WithCORS("*"))

	req := postJSON(`{"query":"{ hello }"}`)
	req.Header.Set("Origin", "http://example.com")
	w, _ := serve(t, h, req)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	pre := httptest.NewRequest("OPTIONS", "/", nil)
	pre.Header.Set("Origin", "http://example.com")
	pre.Header.Set("Access-Control-Request-Headers", "X-Test")
	pw, _ := serve(t, h, pre)
	require.Equal(t, http.StatusNoContent, pw.Code)
	require.Equal(t, "*", pw.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "X-Test", pw.Header().Get("Access-Control-Allow-Headers"))
}

func TestMaxBodyBytes(t *testing.T) {
	h := newTestHandler(t, WithMaxBodyBytes(10))
	w, _ := serve(t, h, postJSON(`{"query":"1234567890"}`))
	require.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestID(t *testing.T) {
	h := newTestHandler(t)
	w, _ := serve(t, h, postJSON(`{"query":"{ hello }"}`))
	_, err := uuid.Parse(w.Header().Get(RequestIDHeader))
	require.NoError(t, err)
}
