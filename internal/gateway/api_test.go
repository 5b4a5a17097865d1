package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/payment-portal/internal/domain/entity"
)

func mustEnvelope(t *testing.T, raw string) *entity.Envelope {
	t.Helper()
	var env entity.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return &env
}

func TestAPI_Login(t *testing.T) {
	var body map[string]string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login/", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeEnvelope(w, 200, "ok", map[string]interface{}{
			"access":  "acc",
			"refresh": "ref",
			"user":    map[string]interface{}{"id": 7, "name": "Ana", "role": "initiator"},
		})
	})

	api := NewAPI(client, "")
	result, ok := api.Login(context.Background(), &Notices{}, "ana@example.com", "pw")

	require.True(t, ok)
	assert.Equal(t, "acc", result.Access)
	assert.Equal(t, int64(7), result.User.ID)
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, "pw", body["password"])
}

func TestAPI_LoginWithoutAccessToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, 200, "ok", map[string]interface{}{"user": map[string]int{"id": 7}})
	})

	notices := &Notices{}
	result, ok := NewAPI(client, "").Login(context.Background(), notices, "a", "b")
	assert.False(t, ok)
	assert.Nil(t, result)
	assert.True(t, notices.Has(NoticeHTTP))
}

func TestAPI_ListPaymentRequests(t *testing.T) {
	tests := []struct {
		name string
		data interface{}
	}{
		{"bare array", []map[string]interface{}{{"RequestId": 42, "total_amount": "10.00"}}},
		{"paginated", map[string]interface{}{
			"count":   1,
			"results": []map[string]interface{}{{"RequestId": 42, "total_amount": 10}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var query string
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				query = r.URL.RawQuery
				writeEnvelope(w, 200, "ok", tt.data)
			})

			requests, ok := NewAPI(client, "").ListPaymentRequests(context.Background(), Scope{Token: "t", Notifier: &Notices{}}, 7)
			require.True(t, ok)
			require.Len(t, requests, 1)
			assert.Equal(t, int64(42), requests[0].RequestID)
			assert.Equal(t, "created_by=7", query)
		})
	}
}

func TestAPI_ListPaymentRequestsNullData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		writeEnvelope(w, 200, "ok", nil)
	})

	requests, ok := NewAPI(client, "").ListPaymentRequests(context.Background(), Scope{}, 0)
	require.True(t, ok)
	assert.NotNil(t, requests)
	assert.Empty(t, requests)
}

func TestAPI_ApproveAndReject(t *testing.T) {
	var paths []string
	var decisions []entity.ApprovalDecision
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		var d entity.ApprovalDecision
		_ = json.NewDecoder(r.Body).Decode(&d)
		decisions = append(decisions, d)
		writeEnvelope(w, 200, "ok", nil)
	})

	api := NewAPI(client, "")
	s := Scope{Token: "t", Notifier: &Notices{}}
	assert.True(t, api.ApprovePaymentRequest(context.Background(), s, 5, entity.ApprovalDecision{Remarks: "fine"}))
	assert.True(t, api.RejectPaymentRequest(context.Background(), s, 5, entity.ApprovalDecision{RejectionReason: "missing invoice"}))

	assert.Equal(t, []string{"/payment-requests/5/approve/", "/payment-requests/5/reject/"}, paths)
	assert.Equal(t, "fine", decisions[0].Remarks)
	assert.Equal(t, "missing invoice", decisions[1].RejectionReason)
}

func TestAPI_CountryCodes(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `[
			{"name":{"common":"Philippines"},"cca2":"PH","idd":{"root":"+6","suffixes":["3"]}},
			{"name":{"common":"Antarctica"},"cca2":"AQ","idd":{}},
			{"name":{"common":"United States"},"cca2":"US","idd":{"root":"+1","suffixes":["201","202"]}},
			{"name":{"common":"Germany"},"cca2":"DE","idd":{"root":"+4","suffixes":["9"]}}
		]`)
	})

	codes, ok := NewAPI(client, srv.URL+"/v3.1/all").CountryCodes(context.Background(), &Notices{})
	require.True(t, ok)
	require.Len(t, codes, 3)
	assert.Equal(t, entity.CountryCode{Name: "Germany", ISO2: "DE", DialCode: "+49"}, codes[0])
	assert.Equal(t, "+63", codes[1].DialCode)
	assert.Equal(t, "+1", codes[2].DialCode)
}

func TestAPI_CountryCodesMalformed(t *testing.T) {
	client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"status":404}`)
	})

	notices := &Notices{}
	codes, ok := NewAPI(client, srv.URL).CountryCodes(context.Background(), notices)
	assert.False(t, ok)
	assert.Nil(t, codes)
	last, _ := notices.Last()
	assert.Equal(t, MalformedResponseMessage, last.Message)
}
