package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"chabench/internal/gateway"
	"chabench/internal/messages"
	"chabench/internal/runtime"
	"chabench/ui"
	"chabench/ui/components"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
)

// Narrow views of the gateway client; handlers depend on exactly the
// operations they perform.
type uploader interface {
	Upload(ctx context.Context, filename string, content io.Reader) (*gateway.UploadResult, error)
}

type fileDownloader interface {
	Download(ctx context.Context, workspaceID, filename string) (*gateway.DownloadResult, error)
}

type workspaceRemover interface {
	DeleteWorkspace(ctx context.Context, workspaceID string) error
}

type commandPublisher interface {
	PublishCommand(ctx context.Context, cmd messages.Command) error
}

type eventPublisher interface {
	PublishEvent(ctx context.Context, evt messages.Event) error
}

// BindFunc records or clears the session-to-workspace binding.
type BindFunc func(ctx context.Context, sid, workspaceID string) error

// Health returns 200 OK.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// IndexHandler renders the upload page; a msg query parameter becomes the
// flash line.
func IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templ.Handler(ui.Index(r.URL.Query().Get("msg"))).ServeHTTP(w, r)
	}
}

// The service only accepts simple transcript filenames.
var transcriptNameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// stageTranscript applies the upload pre-flight to the submitted files:
// anything that is not a .cha transcript is ignored without comment, and of
// the remaining candidates the one submitted last wins.
func stageTranscript(files []*multipart.FileHeader, maxBytes int64) *multipart.FileHeader {
	var staged *multipart.FileHeader
	for _, fh := range files {
		if !strings.EqualFold(filepath.Ext(fh.Filename), ".cha") {
			continue
		}
		if !transcriptNameRegex.MatchString(fh.Filename) {
			continue
		}
		if maxBytes > 0 && fh.Size > maxBytes {
			continue
		}
		staged = fh
	}
	return staged
}

// UploadHandler forwards a staged .cha transcript to the analysis service and
// binds the resulting workspace to the browser session.
func UploadHandler(up uploader, bind BindFunc, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			redirectWithMsg(w, r, "/", "upload too large or malformed")
			return
		}

		staged := stageTranscript(r.MultipartForm.File["file"], maxBytes)
		if staged == nil {
			redirectWithMsg(w, r, "/", "no .cha transcript selected")
			return
		}

		f, err := staged.Open()
		if err != nil {
			redirectWithMsg(w, r, "/", "could not read transcript")
			return
		}
		defer f.Close()

		res, err := up.Upload(r.Context(), staged.Filename, f)
		if err != nil {
			UploadsTotal.WithLabelValues("error").Inc()
			slog.Warn("upload failed", "filename", staged.Filename, "err", err)
			redirectWithMsg(w, r, "/", "upload failed: "+err.Error())
			return
		}
		UploadsTotal.WithLabelValues("ok").Inc()

		if err := bind(r.Context(), SessionID(r), res.UniqueID); err != nil {
			slog.Warn("bind session to workspace", "workspace", res.UniqueID, "err", err)
		}
		http.Redirect(w, r, "/workspace/"+url.PathEscape(res.UniqueID), http.StatusSeeOther)
	}
}

// WorkspacePageHandler renders the workspace view. The first visit creates
// and initializes the session; later visits reuse it. Visiting a workspace
// URL also rebinds the browser session so the UI stream follows along.
func WorkspacePageHandler(engine *runtime.Engine, bind BindFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		sess := engine.Session(r.Context(), workspaceID)
		if err := bind(r.Context(), SessionID(r), workspaceID); err != nil {
			slog.Warn("bind session to workspace", "workspace", workspaceID, "err", err)
		}
		templ.Handler(components.WorkspacePage(sess.Snapshot())).ServeHTTP(w, r)
	}
}

// ExecuteHandler publishes an execute command for the workspace. The run
// itself happens on the engine; the UI stream carries the outcome back.
func ExecuteHandler(pub commandPublisher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}

		cmd := messages.NewExecuteCommand(workspaceID, r.FormValue("binary"), r.FormValue("args"))
		if err := cmd.Validate(); err != nil {
			CommandsPublished.WithLabelValues("rejected").Inc()
			http.Error(w, fmt.Sprintf("validation error: %v", err), http.StatusBadRequest)
			return
		}
		if err := pub.PublishCommand(r.Context(), cmd); err != nil {
			CommandsPublished.WithLabelValues("error").Inc()
			http.Error(w, fmt.Sprintf("publish error: %v", err), http.StatusInternalServerError)
			return
		}
		CommandsPublished.WithLabelValues("ok").Inc()
		w.WriteHeader(http.StatusAccepted)
	}
}

// DownloadHandler streams one workspace file back as an attachment.
func DownloadHandler(dl fileDownloader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		filename := chi.URLParam(r, "filename")

		res, err := dl.Download(r.Context(), workspaceID, filename)
		if err != nil {
			writeGatewayError(w, err)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Filename))
		_, _ = io.WriteString(w, res.Content)
	}
}

// DeleteHandler destroys a workspace. Without an explicit confirm=yes field
// the request is rejected before the service is ever contacted.
func DeleteHandler(rm workspaceRemover, pub eventPublisher, forget func(workspaceID string), unbind BindFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workspaceID := chi.URLParam(r, "workspaceID")
		if err := r.ParseForm(); err != nil {
			http.Error(w, "invalid form data", http.StatusBadRequest)
			return
		}
		if r.FormValue("confirm") != "yes" {
			http.Error(w, "deletion requires confirmation", http.StatusBadRequest)
			return
		}

		if err := rm.DeleteWorkspace(r.Context(), workspaceID); err != nil {
			writeGatewayError(w, err)
			return
		}

		forget(workspaceID)
		if err := pub.PublishEvent(r.Context(), messages.NewWorkspaceDeletedEvent(workspaceID)); err != nil {
			slog.Warn("publish workspace deleted", "workspace", workspaceID, "err", err)
		}
		if err := unbind(r.Context(), SessionID(r), ""); err != nil {
			slog.Warn("unbind session", "workspace", workspaceID, "err", err)
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func redirectWithMsg(w http.ResponseWriter, r *http.Request, path, msg string) {
	http.Redirect(w, r, path+"?msg="+url.QueryEscape(msg), http.StatusSeeOther)
}

// writeGatewayError maps a service failure onto the response, preserving the
// service's status and detail when it supplied them.
func writeGatewayError(w http.ResponseWriter, err error) {
	if se, ok := gateway.AsStatus(err); ok {
		http.Error(w, se.Error(), se.StatusCode)
		return
	}
	http.Error(w, err.Error(), http.StatusBadGateway)
}
