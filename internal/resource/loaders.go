package resource

import (
	"context"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/garyjia/payment-portal/internal/domain/entity"
	"github.com/garyjia/payment-portal/internal/gateway"
)

// Principal is who a loader fetches for
type Principal struct {
	UserID   int64
	Token    string
	Notifier gateway.Notifier
}

func (p Principal) scope(n gateway.Notifier) gateway.Scope {
	return gateway.Scope{Token: p.Token, Notifier: n}
}

// DashboardData is what the dashboard page shows
type DashboardData struct {
	Stats         *entity.DashboardStats
	Notifications []entity.DashboardNotification
}

// Loaders builds the resources a page needs
type Loaders struct {
	api   *gateway.API
	cache *Cache
}

// NewLoaders creates a new loader factory. cache may be nil.
func NewLoaders(api *gateway.API, cache *Cache) *Loaders {
	return &Loaders{
		api:   api,
		cache: cache,
	}
}

// Invalidate drops a principal's cached results. Mutations call it so the
// next page render sees the server's new state.
func (l *Loaders) Invalidate(userID int64) {
	l.cache.InvalidatePrincipal(userID)
}

// RequestList loads the payment requests created by userID. A zero userID
// lists every request the token may see.
func (l *Loaders) RequestList(ctx context.Context, p Principal, userID int64) *Resource[[]entity.PaymentRequest] {
	fetch := func(ctx context.Context, n gateway.Notifier) ([]entity.PaymentRequest, bool) {
		return l.api.ListPaymentRequests(ctx, p.scope(n), userID)
	}
	key := "requests?created_by=" + strconv.FormatInt(userID, 10)
	return New(ctx, "payment requests", Cached(l.cache, p.UserID, key, fetch), p.Notifier)
}

// RequestDetail loads one payment request
func (l *Loaders) RequestDetail(ctx context.Context, p Principal, id int64) *Resource[*entity.PaymentRequest] {
	fetch := func(ctx context.Context, n gateway.Notifier) (*entity.PaymentRequest, bool) {
		return l.api.GetPaymentRequest(ctx, p.scope(n), id)
	}
	key := "requests/" + strconv.FormatInt(id, 10)
	return New(ctx, "payment request", Cached(l.cache, p.UserID, key, fetch), p.Notifier)
}

// Dashboard loads the stats and the notifications in parallel. The page
// needs both; a failure of either fails the load.
func (l *Loaders) Dashboard(ctx context.Context, p Principal) *Resource[*DashboardData] {
	fetch := func(ctx context.Context, n gateway.Notifier) (*DashboardData, bool) {
		var (
			data           DashboardData
			statsOK, notOK bool
		)
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			data.Stats, statsOK = l.api.DashboardStats(gctx, p.scope(n))
			return nil
		})
		g.Go(func() error {
			data.Notifications, notOK = l.api.DashboardNotifications(gctx, p.scope(n))
			return nil
		})
		_ = g.Wait()

		if !statsOK || !notOK {
			return nil, false
		}
		return &data, true
	}
	return New(ctx, "dashboard", Cached(l.cache, p.UserID, "dashboard", fetch), p.Notifier)
}

// Profile loads a user
func (l *Loaders) Profile(ctx context.Context, p Principal, userID int64) *Resource[*entity.User] {
	fetch := func(ctx context.Context, n gateway.Notifier) (*entity.User, bool) {
		return l.api.GetUser(ctx, p.scope(n), userID)
	}
	key := "users/" + strconv.FormatInt(userID, 10)
	return New(ctx, "profile", Cached(l.cache, p.UserID, key, fetch), p.Notifier)
}

// CountryCodes loads the dialing code list. It is the same for everyone and
// is cached under principal 0.
func (l *Loaders) CountryCodes(ctx context.Context, n gateway.Notifier) *Resource[[]entity.CountryCode] {
	fetch := func(ctx context.Context, n gateway.Notifier) ([]entity.CountryCode, bool) {
		return l.api.CountryCodes(ctx, n)
	}
	return New(ctx, "country codes", Cached(l.cache, 0, "countries", fetch), n)
}

// Choices loads the create-form choices
func (l *Loaders) Choices(ctx context.Context, p Principal) *Resource[*entity.PaymentRequestChoices] {
	fetch := func(ctx context.Context, n gateway.Notifier) (*entity.PaymentRequestChoices, bool) {
		return l.api.PaymentRequestChoices(ctx, p.scope(n))
	}
	return New(ctx, "payment request choices", Cached(l.cache, p.UserID, "choices", fetch), p.Notifier)
}
