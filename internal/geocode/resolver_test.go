package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/culturemap/internal/domain"
)

const photonBody = `{"type":"FeatureCollection","features":[
 {"geometry":{"type":"Point","coordinates":[13.3889,52.5170]},"properties":{"name":"Mitte","postcode":"10115","city":"Berlin","country":"Deutschland"}},
 {"geometry":{"type":"Point","coordinates":[13.4132,52.5414]},"properties":{"street":"Kastanienallee","housenumber":"7","postcode":"10437","city":"Berlin","country":"Deutschland"}}
]}`

func newTestResolver(url string) *Resolver {
	return NewResolver(&Config{
		BaseURL:      url,
		Timeout:      2 * time.Second,
		RetryCount:   3,
		RetryWait:    time.Millisecond,
		RetryMaxWait: 5 * time.Millisecond,
		Language:     "de",
		Country:      "Deutschland",
		Center:       domain.GeoLocation{Lat: 52.52, Lng: 13.405},
	})
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		name string
		addr domain.Address
		want string
	}{
		{
			name: "full address",
			addr: domain.Address{Street1: "Kastanienallee", HouseNumber: "7", Street2: "Hinterhaus", City: "Berlin", PostCode: "10437"},
			want: "Berlin, Kastanienallee 7, Hinterhaus, 10437, Deutschland",
		},
		{
			name: "skips empty parts",
			addr: domain.Address{City: " Leipzig ", PostCode: "04109"},
			want: "Leipzig, 04109, Deutschland",
		},
		{
			name: "house number without street",
			addr: domain.Address{HouseNumber: "3", City: "Halle"},
			want: "Halle, 3, Deutschland",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildQuery(tt.addr, "Deutschland"))
		})
	}
}

func TestSelectBest(t *testing.T) {
	candidates := []domain.GeoCandidate{
		{Lat: 1, Lng: 1, PostCode: "10115"},
		{Lat: 2, Lng: 2, PostCode: "10437"},
	}

	t.Run("prefers exact postcode", func(t *testing.T) {
		p, idx := SelectBest(candidates, "10437")
		require.NotNil(t, p)
		assert.Equal(t, 1, idx)
		assert.Equal(t, domain.GeoLocation{Lat: 2, Lng: 2}, *p)
	})

	t.Run("falls back to first", func(t *testing.T) {
		p, idx := SelectBest(candidates, "99999")
		require.NotNil(t, p)
		assert.Equal(t, 0, idx)
		assert.Equal(t, 1.0, p.Lat)
	})

	t.Run("empty postcode takes first", func(t *testing.T) {
		_, idx := SelectBest(candidates, "")
		assert.Equal(t, 0, idx)
	})

	t.Run("no candidates", func(t *testing.T) {
		p, idx := SelectBest(nil, "10437")
		assert.Nil(t, p)
		assert.Equal(t, -1, idx)
	})
}

func TestResolve(t *testing.T) {
	var gotQuery, gotLat string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		gotLat = r.URL.Query().Get("lat")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(photonBody))
	}))
	defer srv.Close()

	r := newTestResolver(srv.URL)
	addr := domain.Address{Street1: "Kastanienallee", HouseNumber: "7", City: "Berlin", PostCode: "10437"}

	res := r.Resolve(context.Background(), addr, nil)

	require.True(t, res.Found())
	assert.Equal(t, "Berlin, Kastanienallee 7, 10437, Deutschland", gotQuery)
	assert.Equal(t, "52.520000", gotLat)
	assert.Len(t, res.Candidates, 2)
	assert.InDelta(t, 52.5414, res.Point.Lat, 1e-9)
	assert.InDelta(t, 13.4132, res.Point.Lng, 1e-9)
	assert.Empty(t, res.Reason)
}

func TestResolveUsesHint(t *testing.T) {
	var gotLon string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLon = r.URL.Query().Get("lon")
		_, _ = w.Write([]byte(`{"features":[]}`))
	}))
	defer srv.Close()

	res := newTestResolver(srv.URL).Resolve(context.Background(), domain.Address{City: "Berlin"}, &domain.GeoLocation{Lat: 1, Lng: 2})

	assert.Equal(t, "2.000000", gotLon)
	assert.False(t, res.Found())
	assert.Equal(t, "no candidates found", res.Reason)
}

func TestResolveRetriesThenDegrades(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	res := newTestResolver(srv.URL).Resolve(context.Background(), domain.Address{City: "Berlin"}, nil)

	assert.False(t, res.Found())
	assert.Empty(t, res.Candidates)
	assert.Equal(t, "geocoding service unavailable", res.Reason)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestResolveRecoversAfterRetry(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(photonBody))
	}))
	defer srv.Close()

	res := newTestResolver(srv.URL).Resolve(context.Background(), domain.Address{City: "Berlin", PostCode: "10115"}, nil)

	require.True(t, res.Found())
	assert.InDelta(t, 52.5170, res.Point.Lat, 1e-9)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestResolveEmptyAddress(t *testing.T) {
	r := newTestResolver("http://127.0.0.1:1")
	res := r.Resolve(context.Background(), domain.Address{}, nil)
	assert.False(t, res.Found())
	assert.Equal(t, "address is empty", res.Reason)
}
