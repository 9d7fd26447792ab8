package zones

import (
	"context"
	"net/http"
	"time"

	"github.com/MeKo-Christian/go-overpass"

	"github.com/urbanize/urbanize-backend/internal/apperr"
	"github.com/urbanize/urbanize-backend/internal/gateway/provider"
)

const providerName = "overpass"

// Querier runs an Overpass QL query. It is satisfied by NewOverpass and by test fakes.
type Querier interface {
	Query(ctx context.Context, ql string) (overpass.Result, error)
}

type overpassQuerier struct {
	query func(string) (overpass.Result, error)
}

// NewOverpass returns a Querier posting to endpoint with at most one request in flight.
func NewOverpass(endpoint string, httpClient *http.Client) Querier {
	if httpClient == nil {
		httpClient = provider.NewHTTPClient(30 * time.Second)
	}
	c := overpass.NewWithSettings(endpoint, 1, httpClient)
	return &overpassQuerier{query: func(ql string) (overpass.Result, error) { return c.Query(ql) }}
}

// Query runs ql. The overpass client does not take a context, so cancellation only
// stops the caller from waiting; the HTTP client's timeout still bounds the request.
func (o *overpassQuerier) Query(ctx context.Context, ql string) (overpass.Result, error) {
	type outcome struct {
		res overpass.Result
		err error
	}
	done := make(chan outcome, 1)
	start := time.Now()
	provider.LogRequest(providerName, http.MethodPost, "interpreter", nil)
	go func() {
		res, err := o.query(ql)
		done <- outcome{res, err}
	}()

	select {
	case <-ctx.Done():
		provider.LogError(providerName, "query", ctx.Err())
		return overpass.Result{}, apperr.Provider(providerName, "query", ctx.Err())
	case out := <-done:
		if out.err != nil {
			provider.LogError(providerName, "query", out.err)
			return overpass.Result{}, apperr.Provider(providerName, "query", out.err)
		}
		provider.LogResponse(providerName, http.StatusOK, time.Since(start), len(out.res.Nodes)+len(out.res.Ways))
		return out.res, nil
	}
}
