package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kusoma/apps/api/echo"
	"github.com/trezcool/kusoma/core"
	"github.com/trezcool/kusoma/core/session"
	"github.com/trezcool/kusoma/core/user"
	oauthsvc "github.com/trezcool/kusoma/services/oauth"
	"github.com/trezcool/kusoma/storage/database/inmem"
	"github.com/trezcool/kusoma/tests"
)

type env struct {
	app    Server
	conf   *core.Config
	db     *inmemdb.DB
	repo   *testutil.CountingRepository
	issuer *session.Issuer
	pinger *fakePinger
}

func setup(t *testing.T, configure ...func(conf *core.Config)) *env {
	return setupWithOAuth(t, nil, configure...)
}

// setupWithOAuth is setup with a sign-in provider (nil leaves OAuth disabled).
func setupWithOAuth(t *testing.T, provider oauthsvc.Provider, configure ...func(conf *core.Config)) *env {
	conf := testutil.NewConfig()
	for _, fn := range configure {
		fn(conf)
	}
	logger := testutil.NewLogger()

	// set up DB & repos
	db := inmemdb.Open()
	repo := testutil.NewCountingRepository(inmemdb.NewUserRepository(db))

	// set up services
	usrSvc := user.NewService(repo)
	issuer, err := session.NewIssuer(usrSvc, logger, session.Options{
		AppName:                conf.AppName,
		SecretKey:              []byte(conf.SecretKey),
		ExpirationDelta:        conf.Server.JWTExpirationDelta,
		RefreshExpirationDelta: conf.Server.JWTRefreshExpirationDelta,
	})
	if err != nil {
		t.Fatalf("NewIssuer() failed: %v", err)
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	pinger := new(fakePinger)

	// set up server
	app := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		StudentSvc: usrSvc,
		Issuer:     issuer,
		DB:         pinger,
		OAuth:      provider,
		Validate:   validate,
		Translator: translator,
	})
	t.Cleanup(func() {
		_ = app.Shutdown(context.Background())
	})

	return &env{app: app, conf: conf, db: db, repo: repo, issuer: issuer, pinger: pinger}
}

type fakePinger struct {
	err error
}

func (p *fakePinger) Ping(context.Context) error { return p.err }

// fakeProvider vouches for a fixed profile without talking to any identity provider.
type fakeProvider struct {
	profile session.Profile
}

var _ oauthsvc.Provider = (*fakeProvider)(nil)

func (p *fakeProvider) Name() string { return session.ProviderGoogle }

func (p *fakeProvider) AuthURLHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "https://accounts.example.com/o/oauth2/auth", http.StatusFound)
	})
}

func (p *fakeProvider) CallbackHandler(onProfile oauthsvc.ProfileHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		onProfile(w, r, p.profile)
	})
}

type httpErr struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func login(t *testing.T, app Server, email, pwd string) session.Token {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/api/auth/login", marchallObj(t, map[string]string{"email": email, "password": pwd}))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login() failed: code = %v; body %s", rec.Code, rec.Body.String())
	}
	var tok session.Token
	if err := json.Unmarshal(rec.Body.Bytes(), &tok); err != nil {
		t.Fatalf("login() failed: %v", err)
	}
	return tok
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
