package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// UploadResult is the service's answer to a successful upload.
type UploadResult struct {
	UniqueID string `json:"unique_id"`
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Path     string `json:"path"`
}

// DownloadResult carries one file's content as UTF-8 text.
type DownloadResult struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

type listResponse struct {
	UniqueID string     `json:"unique_id"`
	Files    []fileInfo `json:"files"`
}

type fileInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
	Size *int64 `json:"size"`
}

type binariesResponse struct {
	Binaries []string `json:"binaries"`
}

type executeRequest struct {
	UniqueID string   `json:"unique_id"`
	Binary   string   `json:"binary"`
	Args     []string `json:"args"`
}

type executeResponse struct {
	UniqueID   string `json:"unique_id"`
	Binary     string `json:"binary"`
	ReturnCode int    `json:"returncode"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
}

// StatusError reports a non-2xx response. Detail is the server-supplied
// message when the body carried one.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("service returned status %d", e.StatusCode)
}

// AsStatus checks whether err is a StatusError and returns it.
func AsStatus(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// decodeFailure builds a StatusError from a non-2xx response, preferring the
// service's {"detail": ...} body over a generic message.
func decodeFailure(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err == nil {
		var payload struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(body, &payload) == nil {
			se.Detail = payload.Detail
		}
	}
	return se
}
