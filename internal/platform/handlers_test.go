package platform

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"chabench/internal/gateway"
	"chabench/internal/messages"

	"github.com/go-chi/chi/v5"
)

func TestMain(m *testing.M) {
	InitMetrics()
	os.Exit(m.Run())
}

func TestStageTranscript(t *testing.T) {
	fh := func(name string, size int64) *multipart.FileHeader {
		return &multipart.FileHeader{Filename: name, Size: size}
	}

	cases := []struct {
		name  string
		files []*multipart.FileHeader
		want  string // "" means nothing staged
	}{
		{"single transcript", []*multipart.FileHeader{fh("session.cha", 10)}, "session.cha"},
		{"uppercase extension", []*multipart.FileHeader{fh("SESSION.CHA", 10)}, "SESSION.CHA"},
		{"non-transcript ignored", []*multipart.FileHeader{fh("session.txt", 10)}, ""},
		{"no extension ignored", []*multipart.FileHeader{fh("cha", 10)}, ""},
		{"last valid wins", []*multipart.FileHeader{fh("a.cha", 1), fh("b.txt", 1), fh("c.cha", 1)}, "c.cha"},
		{"invalid chars in name", []*multipart.FileHeader{fh("bad name.cha", 10)}, ""},
		{"oversize skipped", []*multipart.FileHeader{fh("big.cha", 200), fh("ok.cha", 10)}, "ok.cha"},
		{"oversize last does not unseat", []*multipart.FileHeader{fh("ok.cha", 10), fh("big.cha", 200)}, "ok.cha"},
		{"nothing submitted", nil, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := stageTranscript(tc.files, 100)
			if tc.want == "" {
				if got != nil {
					t.Fatalf("staged %q, want nothing", got.Filename)
				}
				return
			}
			if got == nil || got.Filename != tc.want {
				t.Fatalf("staged %v, want %q", got, tc.want)
			}
		})
	}
}

type fakeUploader struct {
	gotFilename string
	gotContent  string
	calls       int
	res         *gateway.UploadResult
	err         error
}

func (f *fakeUploader) Upload(_ context.Context, filename string, content io.Reader) (*gateway.UploadResult, error) {
	f.calls++
	f.gotFilename = filename
	data, _ := io.ReadAll(content)
	f.gotContent = string(data)
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func multipartUpload(t *testing.T, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for name, content := range files {
		part, err := mw.CreateFormFile("file", name)
		if err != nil {
			t.Fatal(err)
		}
		_, _ = io.WriteString(part, content)
	}
	_ = mw.Close()
	return &body, mw.FormDataContentType()
}

func TestUploadHandlerStagesAndBinds(t *testing.T) {
	up := &fakeUploader{res: &gateway.UploadResult{UniqueID: "abc123", Filename: "session.cha"}}
	var boundWorkspace string
	bind := func(_ context.Context, _, workspaceID string) error {
		boundWorkspace = workspaceID
		return nil
	}

	body, contentType := multipartUpload(t, map[string]string{"session.cha": "@UTF8\n@Begin\n@End\n"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	UploadHandler(up, bind, 100<<20)(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if loc := rec.Header().Get("Location"); loc != "/workspace/abc123" {
		t.Fatalf("redirect = %q", loc)
	}
	if up.gotFilename != "session.cha" || up.gotContent != "@UTF8\n@Begin\n@End\n" {
		t.Fatalf("uploaded %q with %q", up.gotFilename, up.gotContent)
	}
	if boundWorkspace != "abc123" {
		t.Fatalf("bound workspace = %q", boundWorkspace)
	}
}

func TestUploadHandlerIgnoresNonTranscripts(t *testing.T) {
	up := &fakeUploader{res: &gateway.UploadResult{UniqueID: "abc123"}}
	bind := func(context.Context, string, string) error { return nil }

	body, contentType := multipartUpload(t, map[string]string{"notes.txt": "not a transcript"})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	UploadHandler(up, bind, 100<<20)(rec, req)

	if up.calls != 0 {
		t.Fatal("service contacted although nothing was staged")
	}
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil || loc.Path != "/" {
		t.Fatalf("redirect = %q", rec.Header().Get("Location"))
	}
	if loc.Query().Get("msg") == "" {
		t.Error("redirect carries no message")
	}
}

type fakeCommandPublisher struct {
	cmds []messages.Command
	err  error
}

func (f *fakeCommandPublisher) PublishCommand(_ context.Context, cmd messages.Command) error {
	if f.err != nil {
		return f.err
	}
	f.cmds = append(f.cmds, cmd)
	return nil
}

func executeRouter(pub commandPublisher) http.Handler {
	r := chi.NewRouter()
	r.Post("/workspace/{workspaceID}/execute", ExecuteHandler(pub))
	return r
}

func TestExecuteHandlerPublishesCommand(t *testing.T) {
	pub := &fakeCommandPublisher{}
	form := url.Values{"binary": {"freq"}, "args": {"+t*CHI conversation.cha"}}
	req := httptest.NewRequest(http.MethodPost, "/workspace/abc123/execute",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	executeRouter(pub).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(pub.cmds) != 1 {
		t.Fatalf("published %d commands", len(pub.cmds))
	}
	cmd, ok := pub.cmds[0].(*messages.ExecuteCommand)
	if !ok {
		t.Fatalf("command type = %T", pub.cmds[0])
	}
	if cmd.WorkspaceID != "abc123" || cmd.Binary != "freq" || cmd.Args != "+t*CHI conversation.cha" {
		t.Fatalf("command = %+v", cmd)
	}
}

func TestExecuteHandlerRejectsInvalidCommand(t *testing.T) {
	pub := &fakeCommandPublisher{}
	form := url.Values{"binary": {"freq;rm"}}
	req := httptest.NewRequest(http.MethodPost, "/workspace/abc123/execute",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	executeRouter(pub).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(pub.cmds) != 0 {
		t.Fatal("invalid command reached the stream")
	}
}

type fakeDownloader struct {
	res *gateway.DownloadResult
	err error
}

func (f *fakeDownloader) Download(context.Context, string, string) (*gateway.DownloadResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func downloadRouter(dl fileDownloader) http.Handler {
	r := chi.NewRouter()
	r.Get("/workspace/{workspaceID}/download/{filename}", DownloadHandler(dl))
	return r
}

func TestDownloadHandler(t *testing.T) {
	dl := &fakeDownloader{res: &gateway.DownloadResult{Filename: "freq.out", Content: "3 the\n"}}
	req := httptest.NewRequest(http.MethodGet, "/workspace/abc123/download/freq.out", nil)
	rec := httptest.NewRecorder()

	downloadRouter(dl).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := rec.Body.String(); got != "3 the\n" {
		t.Fatalf("body = %q", got)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `"freq.out"`) {
		t.Fatalf("content disposition = %q", cd)
	}
}

func TestDownloadHandlerPropagatesServiceStatus(t *testing.T) {
	dl := &fakeDownloader{err: &gateway.StatusError{StatusCode: http.StatusNotFound, Detail: "File not found"}}
	req := httptest.NewRequest(http.MethodGet, "/workspace/abc123/download/missing.out", nil)
	rec := httptest.NewRecorder()

	downloadRouter(dl).ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "File not found") {
		t.Fatalf("body = %q", rec.Body.String())
	}
}

type fakeRemover struct {
	calls []string
	err   error
}

func (f *fakeRemover) DeleteWorkspace(_ context.Context, workspaceID string) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, workspaceID)
	return nil
}

type fakeEventPublisher struct {
	events []messages.Event
}

func (f *fakeEventPublisher) PublishEvent(_ context.Context, evt messages.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func deleteRouter(rm workspaceRemover, pub eventPublisher, forget func(string), unbind BindFunc) http.Handler {
	r := chi.NewRouter()
	r.Post("/workspace/{workspaceID}/delete", DeleteHandler(rm, pub, forget, unbind))
	return r
}

func TestDeleteHandlerRequiresConfirmation(t *testing.T) {
	rm := &fakeRemover{}
	pub := &fakeEventPublisher{}
	req := httptest.NewRequest(http.MethodPost, "/workspace/abc123/delete",
		strings.NewReader(url.Values{}.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	deleteRouter(rm, pub, func(string) {}, func(context.Context, string, string) error { return nil }).
		ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(rm.calls) != 0 {
		t.Fatal("service contacted without confirmation")
	}
}

func TestDeleteHandlerConfirmed(t *testing.T) {
	rm := &fakeRemover{}
	pub := &fakeEventPublisher{}
	var forgotten string
	unbound := false

	form := url.Values{"confirm": {"yes"}}
	req := httptest.NewRequest(http.MethodPost, "/workspace/abc123/delete",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	deleteRouter(rm, pub,
		func(id string) { forgotten = id },
		func(_ context.Context, _, workspaceID string) error {
			if workspaceID == "" {
				unbound = true
			}
			return nil
		}).ServeHTTP(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Location") != "/" {
		t.Fatalf("redirect = %q", rec.Header().Get("Location"))
	}
	if len(rm.calls) != 1 || rm.calls[0] != "abc123" {
		t.Fatalf("service calls = %v", rm.calls)
	}
	if forgotten != "abc123" {
		t.Fatalf("forgot %q", forgotten)
	}
	if !unbound {
		t.Fatal("session binding not cleared")
	}
	if len(pub.events) != 1 {
		t.Fatalf("published %d events", len(pub.events))
	}
	if _, ok := pub.events[0].(*messages.WorkspaceDeletedEvent); !ok {
		t.Fatalf("event type = %T", pub.events[0])
	}
}

func TestDeleteHandlerPropagatesFailure(t *testing.T) {
	rm := &fakeRemover{err: &gateway.StatusError{StatusCode: http.StatusNotFound, Detail: "Workspace not found"}}
	pub := &fakeEventPublisher{}

	form := url.Values{"confirm": {"yes"}}
	req := httptest.NewRequest(http.MethodPost, "/workspace/gone/delete",
		strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()

	deleteRouter(rm, pub, func(string) {}, func(context.Context, string, string) error { return nil }).
		ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if len(pub.events) != 0 {
		t.Fatal("deleted event published for failed deletion")
	}
}
