package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/freightline/loadbook/internal/common"
	"github.com/freightline/loadbook/internal/entity"
	"github.com/freightline/loadbook/internal/ingest"
)

const maxUploadBytes = 64 << 20 // whole multipart body

type extractResponse struct {
	Extracted        int                `json:"extracted"`
	Duplicates       int                `json:"duplicates"`
	Failed           int                `json:"failed"`
	Skipped          int                `json:"skipped"`
	Loads            []entity.Load      `json:"loads"`
	Errors           []ingest.FileError `json:"errors,omitempty"`
	DuplicateDetails []string           `json:"duplicateDetails,omitempty"`
	Warning          string             `json:"warning,omitempty"`
}

type gmailStats struct {
	EmailsScanned int `json:"emailsScanned"`
	PDFsFound     int `json:"pdfsFound"`
	Extracted     int `json:"extracted"`
	Refreshed     int `json:"refreshed"`
	Duplicates    int `json:"duplicates"`
	Failed        int `json:"failed"`
}

type gmailSyncResponse struct {
	Success bool          `json:"success"`
	Stats   gmailStats    `json:"stats"`
	Loads   []entity.Load `json:"loads"`
	Warning string        `json:"warning,omitempty"`
	Message string        `json:"message,omitempty"`
}

// handleExtract ingests manually uploaded rate confirmations.
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		badRequest(w, "expected multipart form with PDF files")
		return
	}
	var files []ingest.FileInput
	for _, headers := range r.MultipartForm.File {
		for _, fh := range headers {
			f, err := fh.Open()
			if err != nil {
				badRequest(w, "unreadable file "+fh.Filename)
				return
			}
			data, err := io.ReadAll(f)
			_ = f.Close()
			if err != nil {
				badRequest(w, "unreadable file "+fh.Filename)
				return
			}
			files = append(files, ingest.FileInput{Name: fh.Filename, Data: data})
		}
	}
	if len(files) == 0 {
		badRequest(w, "no files in request")
		return
	}

	res, err := s.ingest.ProcessUpload(r.Context(), account, files)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeExtractResponse(w, r, account, res)
}

// handleExtensionSync ingests PDFs the browser extension already scraped and
// base64-encoded.
func (s *Server) handleExtensionSync(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())

	var body struct {
		Files []struct {
			Filename string `json:"filename"`
			Data     string `json:"data"`
		} `json:"files"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid JSON body")
		return
	}
	if len(body.Files) == 0 {
		badRequest(w, "no files in request")
		return
	}

	files := make([]ingest.FileInput, 0, len(body.Files))
	for _, f := range body.Files {
		data, err := base64.StdEncoding.DecodeString(f.Data)
		if err != nil {
			badRequest(w, "file "+f.Filename+" is not valid base64")
			return
		}
		files = append(files, ingest.FileInput{Name: f.Filename, Data: data})
	}

	res, err := s.ingest.ProcessExtension(r.Context(), account, files)
	if err != nil {
		writeError(w, err)
		return
	}
	s.writeExtractResponse(w, r, account, res)
}

// handleGmailSync scans the caller's mailbox using the bearer token supplied
// on the request. Quota exhaustion mid-batch returns 429 with the partial
// stats so the client can surface what did land.
func (s *Server) handleGmailSync(w http.ResponseWriter, r *http.Request) {
	account := common.AccountFrom(r.Context())

	token := bearerToken(r)
	if token == "" {
		var body struct {
			Token string `json:"token"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		token = strings.TrimSpace(body.Token)
	}
	if token == "" {
		badRequest(w, "missing gmail access token")
		return
	}

	res, err := s.ingest.ScanMailbox(r.Context(), account, token)
	if err != nil {
		writeError(w, err)
		return
	}

	loads, err := s.loads.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := gmailSyncResponse{
		Success: !res.QuotaExhausted,
		Stats: gmailStats{
			EmailsScanned: res.EmailsScanned,
			PDFsFound:     res.PDFsFound,
			Extracted:     res.Added,
			Refreshed:     res.Duplicates,
			Duplicates:    res.Duplicates,
			Failed:        res.Failed,
		},
		Loads: loads,
	}
	status := http.StatusOK
	if res.QuotaExhausted {
		status = http.StatusTooManyRequests
		resp.Warning = "extraction quota exhausted before all attachments were processed"
		resp.Message = "partial sync: " + common.CodeQuotaExceeded
	}
	writeJSON(w, status, resp)
}

func (s *Server) writeExtractResponse(w http.ResponseWriter, r *http.Request, account string, res ingest.Result) {
	loads, err := s.loads.ListByAccount(r.Context(), account)
	if err != nil {
		writeError(w, err)
		return
	}
	resp := extractResponse{
		Extracted:        res.Added,
		Duplicates:       res.Duplicates,
		Failed:           res.Failed,
		Skipped:          res.Skipped,
		Loads:            loads,
		Errors:           res.Errors,
		DuplicateDetails: res.MergedIDs,
	}
	if res.QuotaExhausted {
		resp.Warning = "extraction quota exhausted before all files were processed"
	}
	writeJSON(w, http.StatusOK, resp)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}
