package gateway

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"

	"github.com/garyjia/payment-portal/internal/domain/entity"
)

// Scope carries what every authenticated call needs: the bearer token and
// the notification surface of the page that issued it
type Scope struct {
	Token    string
	Notifier Notifier
}

// API exposes the payment API endpoints as typed calls. Every method returns
// ok=false after the failure has been surfaced on the scope's Notifier.
type API struct {
	client          *Client
	countryCodesURL string
}

// NewAPI creates a new typed API over client
func NewAPI(client *Client, countryCodesURL string) *API {
	return &API{
		client:          client,
		countryCodesURL: countryCodesURL,
	}
}

// Client returns the underlying gateway client
func (a *API) Client() *Client {
	return a.client
}

// Login calls POST /auth/login/
func (a *API) Login(ctx context.Context, n Notifier, identifier, secret string) (*entity.LoginResult, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "auth.login",
		Method:   http.MethodPost,
		Path:     "/auth/login/",
		Body: map[string]string{
			"email":    identifier,
			"password": secret,
		},
	}, n)
	result, ok := Decode[entity.LoginResult](env, n)
	if !ok {
		return nil, false
	}
	if result.Access == "" {
		notify(n, Notice{Kind: NoticeHTTP, Message: MalformedResponseMessage})
		return nil, false
	}
	return &result, true
}

// Logout calls POST /auth/logout/
func (a *API) Logout(ctx context.Context, s Scope, refreshToken string) bool {
	env := a.client.Do(ctx, Call{
		Endpoint: "auth.logout",
		Method:   http.MethodPost,
		Path:     "/auth/logout/",
		Body:     map[string]string{"refresh": refreshToken},
		Token:    s.Token,
	}, s.Notifier)
	return env != nil
}

// ForgotPassword calls POST /auth/forgot_password/
func (a *API) ForgotPassword(ctx context.Context, n Notifier, email string) bool {
	env := a.client.Do(ctx, Call{
		Endpoint: "auth.forgot_password",
		Method:   http.MethodPost,
		Path:     "/auth/forgot_password/",
		Body:     map[string]string{"email": email},
	}, n)
	return env != nil
}

// ChangePassword calls POST /auth/change-password/
func (a *API) ChangePassword(ctx context.Context, s Scope, currentPassword, newPassword string) bool {
	env := a.client.Do(ctx, Call{
		Endpoint: "auth.change_password",
		Method:   http.MethodPost,
		Path:     "/auth/change-password/",
		Body: map[string]string{
			"old_password": currentPassword,
			"new_password": newPassword,
		},
		Token: s.Token,
	}, s.Notifier)
	return env != nil
}

// SetPassword calls POST /auth/set-password/ with the token from an invite
// or reset link
func (a *API) SetPassword(ctx context.Context, n Notifier, uid, token, password string) bool {
	env := a.client.Do(ctx, Call{
		Endpoint: "auth.set_password",
		Method:   http.MethodPost,
		Path:     "/auth/set-password/",
		Body: map[string]string{
			"uid":      uid,
			"token":    token,
			"password": password,
		},
	}, n)
	return env != nil
}

// ListPaymentRequests calls GET /payment-requests/. createdBy scopes the list
// to one initiator; zero lists everything the token may see. Both a bare array
// and a paginated {"results": [...]} data member are accepted.
func (a *API) ListPaymentRequests(ctx context.Context, s Scope, createdBy int64) ([]entity.PaymentRequest, bool) {
	query := url.Values{}
	if createdBy > 0 {
		query.Set("created_by", strconv.FormatInt(createdBy, 10))
	}

	env := a.client.Do(ctx, Call{
		Endpoint: "payment_requests.list",
		Path:     "/payment-requests/",
		Query:    query,
		Token:    s.Token,
	}, s.Notifier)
	if env == nil {
		return nil, false
	}

	if results := gjson.GetBytes(env.Data, "results"); results.IsArray() {
		env.Data = []byte(results.Raw)
	}
	requests, ok := Decode[[]entity.PaymentRequest](env, s.Notifier)
	if !ok {
		return nil, false
	}
	if requests == nil {
		requests = []entity.PaymentRequest{}
	}
	return requests, true
}

// GetPaymentRequest calls GET /payment-requests/{id}/
func (a *API) GetPaymentRequest(ctx context.Context, s Scope, id int64) (*entity.PaymentRequest, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "payment_requests.get",
		Path:     fmt.Sprintf("/payment-requests/%d/", id),
		Token:    s.Token,
	}, s.Notifier)
	req, ok := Decode[entity.PaymentRequest](env, s.Notifier)
	if !ok {
		return nil, false
	}
	return &req, true
}

// CreatePaymentRequest calls POST /payment-requests/. With files the payload
// travels as the "payload" part of a multipart body; the whole request is
// still a single call.
func (a *API) CreatePaymentRequest(ctx context.Context, s Scope, payload *entity.CreatePaymentRequest, files []File) (*entity.PaymentRequest, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "payment_requests.create",
		Method:   http.MethodPost,
		Path:     "/payment-requests/",
		Body:     payload,
		Files:    files,
		Token:    s.Token,
	}, s.Notifier)
	req, ok := Decode[entity.PaymentRequest](env, s.Notifier)
	if !ok {
		return nil, false
	}
	return &req, true
}

// ApprovePaymentRequest calls POST /payment-requests/{id}/approve/
func (a *API) ApprovePaymentRequest(ctx context.Context, s Scope, id int64, decision entity.ApprovalDecision) bool {
	env := a.client.Do(ctx, Call{
		Endpoint: "payment_requests.approve",
		Method:   http.MethodPost,
		Path:     fmt.Sprintf("/payment-requests/%d/approve/", id),
		Body:     decision,
		Token:    s.Token,
	}, s.Notifier)
	return env != nil
}

// RejectPaymentRequest calls POST /payment-requests/{id}/reject/
func (a *API) RejectPaymentRequest(ctx context.Context, s Scope, id int64, decision entity.ApprovalDecision) bool {
	env := a.client.Do(ctx, Call{
		Endpoint: "payment_requests.reject",
		Method:   http.MethodPost,
		Path:     fmt.Sprintf("/payment-requests/%d/reject/", id),
		Body:     decision,
		Token:    s.Token,
	}, s.Notifier)
	return env != nil
}

// PaymentRequestChoices calls GET /payment-requests/payment_request_choices/
func (a *API) PaymentRequestChoices(ctx context.Context, s Scope) (*entity.PaymentRequestChoices, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "payment_requests.choices",
		Path:     "/payment-requests/payment_request_choices/",
		Token:    s.Token,
	}, s.Notifier)
	choices, ok := Decode[entity.PaymentRequestChoices](env, s.Notifier)
	if !ok {
		return nil, false
	}
	return &choices, true
}

// DashboardStats calls GET /payments/dashboard_stats/
func (a *API) DashboardStats(ctx context.Context, s Scope) (*entity.DashboardStats, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "payments.dashboard_stats",
		Path:     "/payments/dashboard_stats/",
		Token:    s.Token,
	}, s.Notifier)
	stats, ok := Decode[entity.DashboardStats](env, s.Notifier)
	if !ok {
		return nil, false
	}
	return &stats, true
}

// DashboardNotifications calls GET /payments/dashboard_notifications/
func (a *API) DashboardNotifications(ctx context.Context, s Scope) ([]entity.DashboardNotification, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "payments.dashboard_notifications",
		Path:     "/payments/dashboard_notifications/",
		Token:    s.Token,
	}, s.Notifier)
	items, ok := Decode[[]entity.DashboardNotification](env, s.Notifier)
	if !ok {
		return nil, false
	}
	if items == nil {
		items = []entity.DashboardNotification{}
	}
	return items, true
}

// GetUser calls GET /users/{id}/
func (a *API) GetUser(ctx context.Context, s Scope, id int64) (*entity.User, bool) {
	env := a.client.Do(ctx, Call{
		Endpoint: "users.get",
		Path:     fmt.Sprintf("/users/%d/", id),
		Token:    s.Token,
	}, s.Notifier)
	user, ok := Decode[entity.User](env, s.Notifier)
	if !ok {
		return nil, false
	}
	return &user, true
}

// CountryCodes fetches the external country list and reshapes it into dialing
// codes sorted by country name. The list is not enveloped.
func (a *API) CountryCodes(ctx context.Context, n Notifier) ([]entity.CountryCode, bool) {
	body, ok := a.client.DoRaw(ctx, Call{
		Endpoint: "countries.list",
		Path:     a.countryCodesURL,
	}, n)
	if !ok {
		return nil, false
	}
	codes, ok := ParseCountryCodes(body)
	if !ok {
		notify(n, Notice{Kind: NoticeHTTP, Message: MalformedResponseMessage})
		return nil, false
	}
	return codes, true
}

// ParseCountryCodes reads the restcountries shape
// [{"name":{"common":..},"cca2":..,"idd":{"root":"+6","suffixes":["3"]}}].
// Countries without a dialing root are skipped. A single suffix is appended
// to the root; countries sharing a root with many suffixes keep the root.
func ParseCountryCodes(body []byte) ([]entity.CountryCode, bool) {
	if !gjson.ValidBytes(body) {
		return nil, false
	}
	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		return nil, false
	}

	codes := make([]entity.CountryCode, 0, len(list.Array()))
	list.ForEach(func(_, country gjson.Result) bool {
		root := country.Get("idd.root").String()
		if root == "" {
			return true
		}
		dial := root
		if suffixes := country.Get("idd.suffixes").Array(); len(suffixes) == 1 {
			dial += suffixes[0].String()
		}
		codes = append(codes, entity.CountryCode{
			Name:     country.Get("name.common").String(),
			ISO2:     country.Get("cca2").String(),
			DialCode: dial,
		})
		return true
	})

	sort.Slice(codes, func(i, j int) bool { return codes[i].Name < codes[j].Name })
	return codes, true
}
