package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/slmes-creator/job-posting/internal/cache"
	"github.com/slmes-creator/job-posting/internal/db"
	"github.com/slmes-creator/job-posting/internal/events"
	"github.com/slmes-creator/job-posting/internal/handler"
	"github.com/slmes-creator/job-posting/internal/mail"
	"github.com/slmes-creator/job-posting/internal/oxidb/oxidbtest"
	"github.com/slmes-creator/job-posting/internal/repository"
	"github.com/slmes-creator/job-posting/internal/router"
	"github.com/slmes-creator/job-posting/internal/service"
)

const secret = "test-secret"

type captureSender struct {
	mu   sync.Mutex
	sent []*sgmail.SGMailV3
	err  error
}

func (c *captureSender) Send(_ context.Context, msg *sgmail.SGMailV3) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

func (c *captureSender) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sent)
}

type env struct {
	srv    *httptest.Server
	sender *captureSender
}

func newEnv(t *testing.T, apiKey, from string) *env {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	oxi := oxidbtest.NewServer(t)
	pool, err := db.NewPool(ctx, oxi.Addr(), 2, logger)
	if err != nil {
		t.Fatalf("new pool: %v", err)
	}
	t.Cleanup(pool.Close)

	users := repository.NewUserRepo(pool)
	jobs := repository.NewJobRepo(pool)
	apps := repository.NewApplicationRepo(pool)
	resumes := repository.NewResumeRepo(pool)
	if err := users.EnsureIndexes(ctx); err != nil {
		t.Fatalf("user indexes: %v", err)
	}
	if err := apps.EnsureIndexes(ctx); err != nil {
		t.Fatalf("application indexes: %v", err)
	}
	if err := resumes.EnsureBucket(ctx); err != nil {
		t.Fatalf("bucket: %v", err)
	}

	sender := &captureSender{}
	mailer := mail.NewMailer(apiKey, from, sender)
	revocations := cache.NewMemoryRevocationStore()
	publisher := events.NewLoggingPublisher(logger)

	resumeSvc := service.NewResumeService(resumes, apps, 1<<20)
	authSvc := service.NewAuthService(users, revocations, secret, 0, logger)
	jobSvc := service.NewJobService(jobs, apps, users, logger)
	appSvc := service.NewApplicationService(apps, jobs, users, resumeSvc, mailer, publisher, logger)
	dashSvc := service.NewDashboardService(jobs, apps, users)

	r := router.New(router.Options{
		JWTSecret:   secret,
		Revocations: revocations,
		Logger:      logger,
	}, router.Handlers{
		Auth:      handler.NewAuthHandler(authSvc),
		Jobs:      handler.NewJobHandler(jobSvc),
		Apps:      handler.NewApplicationHandler(appSvc, resumeSvc.MaxBytes()),
		Resumes:   handler.NewResumeHandler(resumeSvc),
		Dashboard: handler.NewDashboardHandler(dashSvc),
		Email:     handler.NewEmailHandler(mailer),
		Health:    handler.NewHealthHandler(pool),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &env{srv: srv, sender: sender}
}

func (e *env) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rdr = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, e.srv.URL+path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.send(t, req, token)
}

func (e *env) send(t *testing.T, req *http.Request, token string) (int, map[string]any) {
	t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	out := map[string]any{}
	json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func (e *env) register(t *testing.T, body map[string]any) (string, string) {
	t.Helper()
	status, out := e.do(t, http.MethodPost, "/api/v1/auth/register", "", body)
	if status != http.StatusCreated {
		t.Fatalf("register: %d %v", status, out)
	}
	user := out["user"].(map[string]any)
	return out["token"].(string), user["id"].(string)
}

func (e *env) accounts(t *testing.T) (orgToken, volToken string) {
	t.Helper()
	orgToken, _ = e.register(t, map[string]any{
		"email": "food@bank.org", "password": "secret1", "role": "organization",
		"organizationName": "City Food Bank",
	})
	volToken, _ = e.register(t, map[string]any{
		"email": "sam@school.edu", "password": "secret1", "role": "volunteer",
		"fullName": "Sam Lee", "school": "North High", "grade": 11,
	})
	return orgToken, volToken
}

func (e *env) postJob(t *testing.T, orgToken string) string {
	t.Helper()
	status, job := e.do(t, http.MethodPost, "/api/v1/organization/jobs", orgToken, map[string]any{
		"title": "Pantry Helper", "description": "Sort donations", "location": "Springfield",
		"date": "2099-06-01", "time": "09:30", "hoursOffered": 3, "maxVolunteers": 4,
	})
	if status != http.StatusCreated {
		t.Fatalf("create job: %d %v", status, job)
	}
	return job["_id"].(string)
}

func TestHealth(t *testing.T) {
	e := newEnv(t, "", "")
	status, out := e.do(t, http.MethodGet, "/healthz", "", nil)
	if status != http.StatusOK || out["status"] != "ok" {
		t.Fatalf("health: %d %v", status, out)
	}
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t, "", "")
	orgToken, _ := e.accounts(t)

	status, _ := e.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]any{
		"email": "FOOD@bank.org", "password": "secret1", "role": "organization", "organizationName": "Dup",
	})
	if status != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", status)
	}

	status, out := e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "sam@school.edu", "password": "wrong!"})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login: %d %v", status, out)
	}
	status, out = e.do(t, http.MethodPost, "/api/v1/auth/login", "", map[string]any{"email": "sam@school.edu", "password": "secret1"})
	if status != http.StatusOK || out["token"] == "" {
		t.Fatalf("login: %d %v", status, out)
	}

	status, out = e.do(t, http.MethodGet, "/api/v1/auth/me", orgToken, nil)
	if status != http.StatusOK || out["organizationName"] != "City Food Bank" {
		t.Fatalf("me: %d %v", status, out)
	}
	if _, leaked := out["passwordHash"]; leaked {
		t.Fatal("password hash must not be returned")
	}

	if status, _ = e.do(t, http.MethodPost, "/api/v1/auth/logout", orgToken, nil); status != http.StatusOK {
		t.Fatalf("logout: %d", status)
	}
	if status, _ = e.do(t, http.MethodGet, "/api/v1/auth/me", orgToken, nil); status != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401, got %d", status)
	}
}

func TestRoleGuards(t *testing.T) {
	e := newEnv(t, "", "")
	orgToken, volToken := e.accounts(t)

	if status, _ := e.do(t, http.MethodGet, "/api/v1/volunteer/jobs", "", nil); status != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", status)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/organization/jobs", volToken, nil); status != http.StatusForbidden {
		t.Fatalf("volunteer on org route: expected 403, got %d", status)
	}
	if status, _ := e.do(t, http.MethodGet, "/api/v1/volunteer/dashboard", orgToken, nil); status != http.StatusForbidden {
		t.Fatalf("org on volunteer route: expected 403, got %d", status)
	}
	if status, _ := e.do(t, http.MethodPost, "/api/send-email", volToken, map[string]any{}); status != http.StatusForbidden {
		t.Fatalf("volunteer on send-email: expected 403, got %d", status)
	}
}

func TestApplicationLifecycle(t *testing.T) {
	e := newEnv(t, "SG.test", "noreply@hub.org")
	orgToken, volToken := e.accounts(t)
	jobID := e.postJob(t, orgToken)

	status, out := e.do(t, http.MethodGet, "/api/v1/volunteer/jobs?q=pantry&hours=1-5", volToken, nil)
	if status != http.StatusOK || out["total"] != float64(1) {
		t.Fatalf("list open jobs: %d %v", status, out)
	}

	apply := map[string]any{"coverLetter": "I love helping", "availability": "weekends"}
	status, app := e.do(t, http.MethodPost, "/api/v1/volunteer/jobs/"+jobID+"/apply", volToken, apply)
	if status != http.StatusCreated || app["status"] != "pending" {
		t.Fatalf("apply: %d %v", status, app)
	}
	appID := app["_id"].(string)

	if status, _ = e.do(t, http.MethodPost, "/api/v1/volunteer/jobs/"+jobID+"/apply", volToken, apply); status != http.StatusConflict {
		t.Fatalf("duplicate apply: expected 409, got %d", status)
	}

	status, out = e.do(t, http.MethodGet, "/api/v1/organization/jobs/"+jobID+"/applications?status=pending", orgToken, nil)
	if status != http.StatusOK || out["total"] != float64(1) {
		t.Fatalf("list for job: %d %v", status, out)
	}
	if status, _ = e.do(t, http.MethodGet, "/api/v1/organization/jobs/"+jobID+"/applications?status=bogus", orgToken, nil); status != http.StatusBadRequest {
		t.Fatalf("bad status filter: expected 400, got %d", status)
	}

	decision := "/api/v1/organization/applications/" + appID + "/decision"
	if status, _ = e.do(t, http.MethodPost, decision, orgToken, map[string]any{"decision": "approve", "message": "  "}); status != http.StatusBadRequest {
		t.Fatalf("blank message: expected 400, got %d", status)
	}
	status, out = e.do(t, http.MethodPost, decision, orgToken, map[string]any{"decision": "approve", "message": "See you Saturday"})
	if status != http.StatusOK || out["status"] != "approved" {
		t.Fatalf("decide: %d %v", status, out)
	}
	if e.sender.count() != 1 {
		t.Fatalf("expected one decision email, got %d", e.sender.count())
	}
	if status, _ = e.do(t, http.MethodPost, decision, orgToken, map[string]any{"decision": "decline", "message": "changed"}); status != http.StatusConflict {
		t.Fatalf("second decision: expected 409, got %d", status)
	}

	status, out = e.do(t, http.MethodPost, "/api/v1/organization/applications/"+appID+"/complete", orgToken, nil)
	if status != http.StatusOK || out["status"] != "completed" || out["hoursCompleted"] != float64(3) {
		t.Fatalf("complete: %d %v", status, out)
	}

	status, out = e.do(t, http.MethodGet, "/api/v1/volunteer/jobs/"+jobID, volToken, nil)
	if status != http.StatusOK {
		t.Fatalf("job detail: %d %v", status, out)
	}
	if mine, _ := out["application"].(map[string]any); mine == nil || mine["status"] != "completed" {
		t.Fatalf("job detail should carry my application: %v", out)
	}

	status, out = e.do(t, http.MethodGet, "/api/v1/organization/dashboard", orgToken, nil)
	if status != http.StatusOK {
		t.Fatalf("org dashboard: %d %v", status, out)
	}
	stats := out["stats"].(map[string]any)
	if stats["hoursProvided"] != float64(3) || stats["openJobs"] != float64(1) {
		t.Fatalf("unexpected org stats %v", stats)
	}

	status, out = e.do(t, http.MethodGet, "/api/v1/auth/me", volToken, nil)
	if status != http.StatusOK || out["totalHours"] != float64(3) {
		t.Fatalf("volunteer hours not credited: %d %v", status, out)
	}
}

func TestApplyWithResumeAndDownload(t *testing.T) {
	e := newEnv(t, "", "")
	orgToken, volToken := e.accounts(t)
	jobID := e.postJob(t, orgToken)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("coverLetter", "Hello")
	mw.WriteField("availability", "Mornings")
	mw.WriteField("references", `{"name":"Ms. Park","affiliation":"Teacher"}`)
	fw, _ := mw.CreateFormFile("resume", "cv.pdf")
	fw.Write([]byte("%PDF-1.4 fake"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/volunteer/jobs/"+jobID+"/apply", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, app := e.send(t, req, volToken)
	if status != http.StatusCreated {
		t.Fatalf("multipart apply: %d %v", status, app)
	}
	url, _ := app["resumeUrl"].(string)
	if !strings.HasPrefix(url, "/api/v1/resumes/") {
		t.Fatalf("expected a resume url, got %v", app)
	}
	if refs := app["references"].(map[string]any); refs["name"] != "Ms. Park" {
		t.Fatalf("references not stored: %v", refs)
	}

	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+url, nil)
	req.Header.Set("Authorization", "Bearer "+orgToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "%PDF-1.4 fake" {
		t.Fatalf("download: %d %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected application/pdf, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "inline;") {
		t.Fatalf("pdf should be served inline, got %q", cd)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}

	strangerToken, _ := e.register(t, map[string]any{
		"email": "other@org.org", "password": "secret1", "role": "organization", "organizationName": "Other",
	})
	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+url, nil)
	if status, _ := e.send(t, req, strangerToken); status != http.StatusForbidden {
		t.Fatalf("stranger download: expected 403, got %d", status)
	}
}

func TestResumeDownloadDoesNotTrustClientType(t *testing.T) {
	e := newEnv(t, "", "")
	_, volToken := e.accounts(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="resume"; filename="cv.html"`)
	h.Set("Content-Type", "text/html")
	pw, _ := mw.CreatePart(h)
	pw.Write([]byte("<script>alert(1)</script>"))
	mw.Close()

	req, _ := http.NewRequest(http.MethodPost, e.srv.URL+"/api/v1/resumes", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	status, out := e.send(t, req, volToken)
	if status != http.StatusCreated {
		t.Fatalf("upload: %d %v", status, out)
	}
	url, _ := out["url"].(string)

	req, _ = http.NewRequest(http.MethodGet, e.srv.URL+url, nil)
	req.Header.Set("Authorization", "Bearer "+volToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/octet-stream" {
		t.Fatalf("expected application/octet-stream, got %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment;") {
		t.Fatalf("expected attachment, got %q", cd)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
}

func TestDraftsAndOwnership(t *testing.T) {
	e := newEnv(t, "", "")
	orgToken, volToken := e.accounts(t)

	status, draft := e.do(t, http.MethodPost, "/api/v1/organization/jobs/drafts", orgToken, map[string]any{"title": "Half done"})
	if status != http.StatusCreated || draft["status"] != "draft" {
		t.Fatalf("save draft: %d %v", status, draft)
	}
	draftID := draft["_id"].(string)

	if status, _ = e.do(t, http.MethodPost, "/api/v1/volunteer/jobs/"+draftID+"/apply", volToken,
		map[string]any{"coverLetter": "x", "availability": "y"}); status != http.StatusNotFound {
		t.Fatalf("apply to draft: expected 404, got %d", status)
	}

	status, out := e.do(t, http.MethodGet, "/api/v1/organization/jobs", orgToken, nil)
	if status != http.StatusOK {
		t.Fatalf("list org jobs: %d %v", status, out)
	}
	if drafts, _ := out["drafts"].([]any); len(drafts) != 1 {
		t.Fatalf("expected one draft, got %v", out)
	}

	otherToken, _ := e.register(t, map[string]any{
		"email": "other@org.org", "password": "secret1", "role": "organization", "organizationName": "Other",
	})
	if status, _ = e.do(t, http.MethodGet, "/api/v1/organization/jobs/"+draftID, otherToken, nil); status != http.StatusForbidden {
		t.Fatalf("foreign job: expected 403, got %d", status)
	}

	status, out = e.do(t, http.MethodPut, "/api/v1/organization/jobs/"+draftID, orgToken, map[string]any{
		"title": "Now complete", "description": "d", "location": "l", "date": "2099-01-01", "status": "open",
	})
	if status != http.StatusOK || out["status"] != "open" {
		t.Fatalf("publish draft: %d %v", status, out)
	}
}

func TestSendEmailEndpoint(t *testing.T) {
	full := map[string]any{
		"to": "sam@school.edu", "volunteerName": "Sam", "jobTitle": "Pantry Helper",
		"decision": "approved", "message": "Welcome", "organizationName": "City Food Bank",
	}

	unconfigured := newEnv(t, "", "noreply@hub.org")
	orgToken, _ := unconfigured.accounts(t)

	status, out := unconfigured.do(t, http.MethodPost, "/api/send-email", orgToken, map[string]any{"to": "sam@school.edu"})
	if status != http.StatusBadRequest || out["error"] != "Missing required fields" {
		t.Fatalf("missing fields: %d %v", status, out)
	}
	status, out = unconfigured.do(t, http.MethodPost, "/api/send-email", orgToken, full)
	if status != http.StatusInternalServerError || out["error"] != "SendGrid API key not configured" {
		t.Fatalf("missing key: %d %v", status, out)
	}
	status, out = unconfigured.do(t, http.MethodGet, "/api/test-email", orgToken, nil)
	if status != http.StatusOK || out["success"] != false || out["error"] != "SENDGRID_API_KEY is missing" {
		t.Fatalf("test email without key: %d %v", status, out)
	}

	configured := newEnv(t, "SG.test", "noreply@hub.org")
	orgToken, _ = configured.accounts(t)
	status, out = configured.do(t, http.MethodPost, "/api/send-email", orgToken, full)
	if status != http.StatusOK || out["success"] != true || out["message"] != "Email sent successfully" {
		t.Fatalf("send: %d %v", status, out)
	}

	configured.sender.fail(&mail.ProviderError{StatusCode: 401, Body: `{"errors":[{"message":"bad key"}]}`})
	status, out = configured.do(t, http.MethodPost, "/api/send-email", orgToken, full)
	if status != http.StatusInternalServerError || out["error"] != "Failed to send email" {
		t.Fatalf("provider failure: %d %v", status, out)
	}
	if details, _ := out["details"].([]any); len(details) != 1 {
		t.Fatalf("expected provider details, got %v", out["details"])
	}

	configured.sender.fail(nil)
	status, out = configured.do(t, http.MethodGet, "/api/test-email", orgToken, nil)
	if status != http.StatusOK || out["success"] != true || out["to"] != "noreply@hub.org" {
		t.Fatalf("test email: %d %v", status, out)
	}
}
