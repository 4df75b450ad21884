package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cppla/chatdesk/services"
	"github.com/cppla/chatdesk/utils"
)

// multipart overhead allowed on top of the file size limit
const uploadEnvelope = 1 << 20

// FileController manages uploads attached to chat sessions.
type FileController struct {
	files *services.FileService
}

// NewFileController creates a new FileController instance.
func NewFileController(files *services.FileService) *FileController {
	return &FileController{files: files}
}

// Upload accepts a multipart form with "file" and "session_id".
func (f *FileController) Upload(ctx *gin.Context) {
	ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, services.MaxUploadSize+uploadEnvelope)

	req, cleanup, err := readUpload(ctx.Request)
	defer cleanup()
	if err != nil {
		utils.Sugar.Errorw("read upload failed", "error", err)
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to read upload")
		return
	}

	info, err := f.files.Upload(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err, 50031)
		return
	}
	utils.Success(ctx, gin.H{
		"status":     "success",
		"message":    "File uploaded successfully",
		"file_info":  info,
		"session_id": req.SessionID,
	})
}

// readUpload streams the multipart body part by part, spooling the file to a
// temp file. An oversized body is not an error here: the request comes back
// with Size past the limit so the service reports it after the session id
// and file checks. A session_id sent after an oversized file cannot be read.
func readUpload(r *http.Request) (services.UploadRequest, func(), error) {
	var req services.UploadRequest
	var spool *os.File
	cleanup := func() {
		if spool != nil {
			_ = spool.Close()
			_ = os.Remove(spool.Name())
		}
	}

	mr, err := r.MultipartReader()
	if err != nil {
		// not a multipart body: nothing to read
		return req, cleanup, nil
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			// end of form, an oversized body or a malformed one
			break
		}

		switch {
		case part.FormName() == "session_id" && part.FileName() == "":
			b, err := io.ReadAll(io.LimitReader(part, 1024))
			if err != nil && !isTooLarge(err) {
				return req, cleanup, err
			}
			req.SessionID = strings.TrimSpace(string(b))
		case part.FormName() == "file" && part.FileName() != "" && req.Body == nil:
			if spool, err = os.CreateTemp("", "chatdesk-upload-*"); err != nil {
				return req, cleanup, err
			}
			n, err := io.Copy(spool, io.LimitReader(part, services.MaxUploadSize+1))
			if err != nil && !isTooLarge(err) {
				return req, cleanup, err
			}
			if err != nil || n > services.MaxUploadSize {
				n = services.MaxUploadSize + 1
			}
			if _, err := spool.Seek(0, io.SeekStart); err != nil {
				return req, cleanup, err
			}
			req.Filename = part.FileName()
			req.ContentType = part.Header.Get("Content-Type")
			req.Size = n
			req.Body = spool
		}
		_ = part.Close()
	}
	return req, cleanup, nil
}

func isTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge)
}

// List returns the files of a session, newest first.
func (f *FileController) List(ctx *gin.Context) {
	sessionID := ctx.Query("session_id")
	files, err := f.files.List(ctx.Request.Context(), sessionID)
	if err != nil {
		respondError(ctx, err, 50032)
		return
	}
	utils.Success(ctx, gin.H{
		"files":      files,
		"count":      len(files),
		"session_id": sessionID,
	})
}

// Delete removes a file when both file id and session id match.
func (f *FileController) Delete(ctx *gin.Context) {
	var req struct {
		FileID    flexibleID `json:"file_id"`
		SessionID string     `json:"session_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		invalidJSON(ctx)
		return
	}

	name, err := f.files.Delete(ctx.Request.Context(), string(req.FileID), req.SessionID)
	if err != nil {
		respondError(ctx, err, 50033)
		return
	}
	utils.Success(ctx, gin.H{
		"status":  "success",
		"message": `File "` + name + `" deleted successfully`,
	})
}

// flexibleID accepts ids sent either as JSON strings or numbers.
type flexibleID string

func (id *flexibleID) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = flexibleID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*id = flexibleID(n.String())
	return nil
}
