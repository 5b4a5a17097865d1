package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second}, zap.NewNop()), srv
}

func writeEnvelope(w http.ResponseWriter, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"code":    code,
		"message": message,
		"data":    data,
		"errors":  nil,
	})
}

func TestClient_Do_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, 200, "ok", map[string]int{"n": 1})
	})

	notices := &Notices{}
	env := client.Do(context.Background(), Call{Endpoint: "test", Path: "/ping/", Token: "abc"}, notices)

	require.NotNil(t, env)
	assert.Equal(t, "Bearer abc", gotAuth)
	assert.JSONEq(t, `{"n":1}`, string(env.Data))
	assert.Empty(t, notices.Items())
}

func TestClient_Do_NoTokenNoHeader(t *testing.T) {
	var hadAuth bool
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, hadAuth = r.Header["Authorization"]
		writeEnvelope(w, 200, "ok", nil)
	})

	env := client.Do(context.Background(), Call{Path: "/ping/"}, &Notices{})
	require.NotNil(t, env)
	assert.False(t, hadAuth)
}

func TestClient_Do_Non2xxSurfacesBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, "Vendor is required")
	})

	notices := &Notices{}
	env := client.Do(context.Background(), Call{Path: "/payment-requests/"}, notices)

	assert.Nil(t, env)
	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, NoticeHTTP, last.Kind)
	assert.Equal(t, "Vendor is required", last.Message)
}

func TestClient_Do_Non2xxEnvelopeMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		writeEnvelope(w, 403, "You do not have permission", nil)
	})

	notices := &Notices{}
	assert.Nil(t, client.Do(context.Background(), Call{Path: "/users/1/"}, notices))
	last, _ := notices.Last()
	assert.Equal(t, "You do not have permission", last.Message)
}

func TestClient_Do_Non2xxEmptyBodyUsesStatusText(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	notices := &Notices{}
	assert.Nil(t, client.Do(context.Background(), Call{Path: "/x/"}, notices))
	last, _ := notices.Last()
	assert.Equal(t, "Bad Gateway", last.Message)
}

func TestClient_Do_EnvelopeCodeNot200(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 400, "Invalid filter", nil)
	})

	notices := &Notices{}
	assert.Nil(t, client.Do(context.Background(), Call{Path: "/payment-requests/"}, notices))
	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, NoticeHTTP, last.Kind)
	assert.Equal(t, "Invalid filter", last.Message)
}

func TestClient_Do_EnvelopeCodeNot200WithoutMessage(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 500, "", nil)
	})

	notices := &Notices{}
	assert.Nil(t, client.Do(context.Background(), Call{Path: "/x/"}, notices))
	last, _ := notices.Last()
	assert.Equal(t, "Request failed (code 500)", last.Message)
}

func TestClient_Do_MalformedEnvelope(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>oops</html>")
	})

	notices := &Notices{}
	assert.Nil(t, client.Do(context.Background(), Call{Path: "/x/"}, notices))
	last, _ := notices.Last()
	assert.Equal(t, MalformedResponseMessage, last.Message)
}

func TestClient_Do_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewClient(Config{BaseURL: url, Timeout: time.Second}, zap.NewNop())
	notices := &Notices{}
	assert.Nil(t, client.Do(context.Background(), Call{Path: "/x/"}, notices))

	last, ok := notices.Last()
	require.True(t, ok)
	assert.Equal(t, NoticeNetwork, last.Kind)
	assert.Equal(t, NetworkErrorMessage, last.Message)
}

func TestClient_Do_CancelledContextIsSilent(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "ok", nil)
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	notices := &Notices{}
	assert.Nil(t, client.Do(ctx, Call{Path: "/x/"}, notices))
	assert.Empty(t, notices.Items())
}

func TestClient_Do_TokenInvalidInvokesHandler(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"401 with top-level code", http.StatusUnauthorized, `{"detail":"Given token not valid","code":"token_not_valid"}`},
		{"401 envelope errors", http.StatusUnauthorized, `{"code":401,"message":"","data":null,"errors":{"code":"token_not_valid"}}`},
		{"200 envelope data", http.StatusOK, `{"code":401,"message":"expired","data":{"code":"token_not_valid"},"errors":null}`},
		{"200 bare code", http.StatusOK, `{"code":"token_not_valid"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			var invalidated string
			client.OnTokenInvalid(func(ctx context.Context, token string) {
				invalidated = token
			})

			notices := &Notices{}
			assert.Nil(t, client.Do(context.Background(), Call{Path: "/x/", Token: "stale"}, notices))
			assert.Equal(t, "stale", invalidated)
			assert.True(t, notices.Has(NoticeTokenExpired))
			assert.False(t, notices.Has(NoticeHTTP))
		})
	}
}

func TestClient_Do_JSONBody(t *testing.T) {
	var got map[string]string
	var contentType string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeEnvelope(w, 200, "ok", nil)
	})

	env := client.Do(context.Background(), Call{
		Method: http.MethodPost,
		Path:   "/auth/forgot_password/",
		Body:   map[string]string{"email": "a@b.c"},
	}, &Notices{})

	require.NotNil(t, env)
	assert.Equal(t, "application/json", contentType)
	assert.Equal(t, "a@b.c", got["email"])
}

func TestClient_Do_MultipartBody(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "invoice.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	var payload, fileName, fileContent string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		payload = r.FormValue("payload")
		f, hdr, err := r.FormFile("attachment_0_0_0")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		fileName, fileContent = hdr.Filename, string(data)
		writeEnvelope(w, 200, "ok", nil)
	})

	env := client.Do(context.Background(), Call{
		Method: http.MethodPost,
		Path:   "/payment-requests/",
		Body:   map[string]string{"Remarks": "with file"},
		Files:  []File{{Field: "attachment_0_0_0", FileName: "invoice.pdf", Path: path}},
	}, &Notices{})

	require.NotNil(t, env)
	assert.JSONEq(t, `{"Remarks":"with file"}`, payload)
	assert.Equal(t, "invoice.pdf", fileName)
	assert.Equal(t, "%PDF-1.4", fileContent)
}

func TestClient_Do_MissingAttachment(t *testing.T) {
	called := false
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	notices := &Notices{}
	env := client.Do(context.Background(), Call{
		Method: http.MethodPost,
		Path:   "/payment-requests/",
		Files:  []File{{Field: "f", Path: "/does/not/exist"}},
	}, notices)

	assert.Nil(t, env)
	assert.False(t, called)
	assert.True(t, notices.Has(NoticeHTTP))
}

func TestDecode(t *testing.T) {
	notices := &Notices{}

	v, ok := Decode[map[string]int](nil, notices)
	assert.False(t, ok)
	assert.Nil(t, v)

	v, ok = Decode[map[string]int](mustEnvelope(t, `{"code":200,"data":null}`), notices)
	assert.True(t, ok)
	assert.Nil(t, v)

	v, ok = Decode[map[string]int](mustEnvelope(t, `{"code":200,"data":{"a":1}}`), notices)
	assert.True(t, ok)
	assert.Equal(t, 1, v["a"])

	_, ok = Decode[map[string]int](mustEnvelope(t, `{"code":200,"data":[1,2]}`), notices)
	assert.False(t, ok)
	assert.True(t, notices.Has(NoticeHTTP))
}

func TestIsTokenInvalid(t *testing.T) {
	assert.True(t, IsTokenInvalid([]byte(`{"code":"token_not_valid"}`)))
	assert.True(t, IsTokenInvalid([]byte(`{"errors":{"code":"token_not_valid"}}`)))
	assert.True(t, IsTokenInvalid([]byte(`{"data":{"code":"token_not_valid"}}`)))
	assert.True(t, IsTokenInvalid([]byte(`{"errors":{"detail":{"code":"token_not_valid"}}}`)))
	assert.False(t, IsTokenInvalid([]byte(`{"code":400,"errors":{"code":"invalid"}}`)))
	assert.False(t, IsTokenInvalid([]byte(`not json`)))
	assert.False(t, IsTokenInvalid(nil))
}

func TestNotices_DropsBlankMessages(t *testing.T) {
	n := &Notices{}
	n.Notify(Notice{Kind: NoticeHTTP, Message: "  "})
	n.Notify(Notice{Kind: NoticeSuccess, Message: "Saved"})

	items := n.Items()
	require.Len(t, items, 1)
	assert.False(t, items[0].IsError())
}
