package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/guestlist/internal/authorization"
	"github.com/smallbiznis/guestlist/internal/capacity"
	carpoolrepo "github.com/smallbiznis/guestlist/internal/carpool/repository"
	carpoolservice "github.com/smallbiznis/guestlist/internal/carpool/service"
	"github.com/smallbiznis/guestlist/internal/clock"
	"github.com/smallbiznis/guestlist/internal/config"
	guestrepo "github.com/smallbiznis/guestlist/internal/guest/repository"
	guestservice "github.com/smallbiznis/guestlist/internal/guest/service"
	"github.com/smallbiznis/guestlist/internal/migration"
	"github.com/smallbiznis/guestlist/internal/observability"
	"github.com/smallbiznis/guestlist/internal/ratelimit"
	transportrepo "github.com/smallbiznis/guestlist/internal/transport/repository"
	transportservice "github.com/smallbiznis/guestlist/internal/transport/service"
	"github.com/smallbiznis/guestlist/pkg/db/dbtest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "test-secret"
	testIssuer = "guestlist-test"
)

var testStart = time.Date(2027, 5, 1, 9, 0, 0, 0, time.UTC)

type apiFixture struct {
	t      *testing.T
	server *Server
}

type apiResponse struct {
	Code   int
	Header http.Header
	Body   map[string]any
}

func setupServer(t *testing.T, limiter *ratelimit.Limiter) *apiFixture {
	t.Helper()

	db := dbtest.Open(t, migration.Models()...)
	node, err := snowflake.NewNode(5)
	require.NoError(t, err)
	log := zap.NewNop()
	clk := clock.NewFakeClock(testStart)
	ledger := capacity.New(capacity.Params{Log: log})

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	cfg := config.Config{
		Environment: "test",
		Auth:        config.AuthConfig{JWTSecret: testSecret, JWTIssuer: testIssuer},
	}

	srv, err := NewServer(ServerParams{
		Gin: NewEngine(observability.Config{Environment: "test"}, nil),
		Cfg: cfg,
		Log: log,
		GuestSvc: guestservice.New(guestservice.Params{
			DB: db, Log: log, GenID: node, Repo: guestrepo.Provide(), Clock: clk,
		}),
		TransportSvc: transportservice.New(transportservice.Params{
			DB: db, Log: log, GenID: node, Repo: transportrepo.Provide(), Ledger: ledger, Clock: clk,
		}),
		CarpoolSvc: carpoolservice.New(carpoolservice.Params{
			DB: db, Log: log, GenID: node, Repo: carpoolrepo.Provide(), Ledger: ledger, Clock: clk,
		}),
		AuthzSvc: authorization.NewService(authorization.Params{Log: log, Enforcer: enforcer}),
		Limiter:  limiter,
	})
	require.NoError(t, err)

	return &apiFixture{t: t, server: srv}
}

func signToken(t *testing.T, accountID, role string, ttl time.Duration) string {
	t.Helper()
	claims := accountClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func adminToken(t *testing.T) string {
	return signToken(t, "acct-admin", authorization.RoleAdmin, time.Hour)
}

func guestToken(t *testing.T, accountID string) string {
	return signToken(t, accountID, authorization.RoleGuest, time.Hour)
}

func (f *apiFixture) do(method, path, token string, body any) apiResponse {
	f.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(f.t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.server.Engine().ServeHTTP(w, req)

	resp := apiResponse{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		require.NoError(f.t, json.Unmarshal(w.Body.Bytes(), &resp.Body), w.Body.String())
	}
	return resp
}

// register self-registers a guest for the account and returns its id.
func (f *apiFixture) register(accountID, name, email string) string {
	f.t.Helper()
	resp := f.do(http.MethodPost, "/api/me/register", guestToken(f.t, accountID), map[string]any{
		"name":  name,
		"email": email,
	})
	require.Equal(f.t, http.StatusCreated, resp.Code, resp.Body)
	return resp.data()["id"].(string)
}

func (r apiResponse) data() map[string]any {
	data, _ := r.Body["data"].(map[string]any)
	return data
}

func (r apiResponse) list() []any {
	data, _ := r.Body["data"].([]any)
	return data
}

func (r apiResponse) errorType() string {
	payload, _ := r.Body["error"].(map[string]any)
	value, _ := payload["type"].(string)
	return value
}

func (r apiResponse) errorCode() string {
	payload, _ := r.Body["error"].(map[string]any)
	value, _ := payload["code"].(string)
	return value
}
