package web

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/JonMunkholm/nlexport/internal/core"
	"github.com/JonMunkholm/nlexport/internal/dump"
	"github.com/JonMunkholm/nlexport/internal/logging"
	"github.com/JonMunkholm/nlexport/internal/output"
	"github.com/JonMunkholm/nlexport/internal/store"
	"github.com/JonMunkholm/nlexport/internal/table"
	"github.com/JonMunkholm/nlexport/internal/web/templates"
)

// multipartMemory is how much of a multipart body is held in memory before
// parts spill to temporary files.
var multipartMemory int64 = 32 << 20

var (
	errNoFile   = errors.New("no file provided")
	errNoLoader = errors.New("loading into a database is not configured on this server")
)

// handleIndex renders the upload form.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	targets := []templates.Choice{{Value: "", Label: "default (plots or experiment)"}}
	for _, t := range dump.Targets {
		targets = append(targets, templates.Choice{Value: string(t), Label: string(t)})
	}
	formats := make([]templates.Choice, len(output.Formats))
	for i, f := range output.Formats {
		formats[i] = templates.Choice{Value: f, Label: strings.ToUpper(f)}
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := templates.Index(templates.IndexData{
		Targets:     targets,
		Formats:     formats,
		MaxFiles:    s.cfg.Upload.MaxFiles,
		MaxFileSize: s.cfg.Upload.MaxFileSize,
		Metadata:    s.cfg.Convert.Metadata,
	}).Render(r.Context(), w)
	if err != nil {
		logging.FromContext(r.Context()).Error("render index", "error", err)
	}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status  string             `json:"status"`
	Time    time.Time          `json:"time"`
	Limiter core.LimiterStatus `json:"conversions"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Time:    time.Now().UTC(),
		Limiter: s.limiter.Status(),
	})
}

// convertRequest is the parsed form of POST /api/convert.
type convertRequest struct {
	opts   core.Options
	sep    string
	na     string
	format string
	skips  []int
	files  []*multipart.FileHeader

	// pgTable names the database table to load into; empty skips loading.
	pgTable string
}

// parseConvertForm reads the form values, falling back to the configured
// conversion defaults. "skip" is either one value for every file or one
// value per file, in upload order.
func (s *Server) parseConvertForm(r *http.Request) (*convertRequest, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, fmt.Errorf("parse upload: %w", err)
	}
	form := r.MultipartForm

	req := &convertRequest{
		sep:     formValue(form, "sep", s.cfg.Convert.Separator),
		na:      formValue(form, "na", s.cfg.Convert.NA),
		format:  formValue(form, "format", s.cfg.Convert.Format),
		pgTable: formValue(form, "pg_table", ""),
		files:   form.File["file"],
	}
	if len(req.files) == 0 {
		return nil, errNoFile
	}
	if len(req.files) > s.cfg.Upload.MaxFiles {
		return nil, fmt.Errorf("too many files: %d (limit %d)", len(req.files), s.cfg.Upload.MaxFiles)
	}

	target, err := dump.ParseTarget(formValue(form, "target", s.cfg.Convert.Target))
	if err != nil {
		return nil, err
	}
	meta := s.cfg.Convert.Metadata
	if v := formValue(form, "meta", ""); v != "" {
		if meta, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("invalid meta value %q", v)
		}
	}
	req.opts = core.Options{
		Target:   target,
		Metadata: meta,
		Charset:  formValue(form, "encoding", s.cfg.Convert.Encoding),
		MaxSteps: s.cfg.Convert.MaxSteps,
	}

	for _, v := range form.Value["skip"] {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid skip count %q", v)
		}
		req.skips = append(req.skips, n)
	}
	if len(req.skips) > 1 && len(req.skips) != len(req.files) {
		return nil, fmt.Errorf("got %d skip counts for %d files", len(req.skips), len(req.files))
	}
	return req, nil
}

func (req *convertRequest) skipFor(i int) int {
	switch len(req.skips) {
	case 0:
		return 0
	case 1:
		return req.skips[0]
	default:
		return req.skips[i]
	}
}

func formValue(form *multipart.Form, key, fallback string) string {
	if vs := form.Value[key]; len(vs) > 0 && strings.TrimSpace(vs[0]) != "" {
		return vs[0]
	}
	return fallback
}

// convertUpload parses the form and runs the conversion under the limiter.
// On failure it has already responded and ok is false. On success the
// caller must call cleanup once it no longer needs the uploaded files.
func (s *Server) convertUpload(w http.ResponseWriter, r *http.Request) (req *convertRequest, merged *table.Table, report *core.Report, cleanup func(), ok bool) {
	cleanup = func() {}
	limit := s.cfg.Upload.MaxFileSize
	if r.ContentLength > limit {
		s.respondError(w, r, &http.MaxBytesError{Limit: limit}, http.StatusRequestEntityTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	req, err := s.parseConvertForm(r)
	if err != nil {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.respondError(w, r, err, status)
		return
	}
	form := r.MultipartForm
	removeForm := func() { form.RemoveAll() }
	defer func() {
		if ok {
			cleanup = removeForm
		} else {
			removeForm()
		}
	}()

	if req.pgTable != "" && s.loader == nil {
		s.respondError(w, r, errNoLoader, http.StatusBadRequest)
		return
	}
	conv, err := core.NewConverter(req.opts)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	uploads := make([]core.Upload, 0, len(req.files))
	for i, fh := range req.files {
		f, err := fh.Open()
		if err != nil {
			s.respondError(w, r, fmt.Errorf("open upload %s: %w", fh.Filename, err), http.StatusBadRequest)
			return
		}
		defer f.Close()
		uploads = append(uploads, core.Upload{Name: fh.Filename, Body: f, Skip: req.skipFor(i)})
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Upload.Timeout)
	defer cancel()

	err = s.limiter.Do(ctx, func(ctx context.Context) error {
		var err error
		merged, report, err = conv.ConvertUploads(ctx, uploads)
		return err
	})
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	return req, merged, report, cleanup, true
}

// handleConvert merges the uploaded exports and returns the table.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	req, merged, report, cleanup, ok := s.convertUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	writer, err := output.ForFormat(req.format, output.UnescapeSep(req.sep), req.na)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	if req.pgTable != "" {
		n, err := s.load(r.Context(), req, merged, report)
		if err != nil {
			s.respondError(w, r, err, 0)
			return
		}
		w.Header().Set("X-Loaded-Rows", strconv.FormatInt(n, 10))
	}

	var body bytes.Buffer
	if err := writer.Write(&body, merged); err != nil {
		s.respondError(w, r, fmt.Errorf("render table: %w", err), http.StatusInternalServerError)
		return
	}

	h := w.Header()
	h.Set("Content-Type", writer.ContentType())
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="nlexport-%s%s"`, report.RunID, writer.Ext()))
	h.Set("X-Run-Id", report.RunID)
	h.Set("X-Row-Count", strconv.Itoa(report.Rows))
	h.Set("X-Column-Count", strconv.Itoa(report.Columns))
	w.WriteHeader(http.StatusOK)
	if _, err := body.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("write response", "error", err)
	}
}

// handlePreview converts the uploads and returns the report, per-column
// statistics and the first rows as JSON. Nothing is loaded.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	req, merged, report, cleanup, ok := s.convertUpload(w, r)
	if !ok {
		return
	}
	defer cleanup()

	rows, _ := strconv.Atoi(r.URL.Query().Get("rows"))
	writeJSON(w, http.StatusOK, core.Preview(merged, report, rows, req.na))
}

// load writes the merged table to req.pgTable and records every upload in
// the import history.
func (s *Server) load(ctx context.Context, req *convertRequest, merged *table.Table, report *core.Report) (int64, error) {
	imports := make([]store.Import, len(req.files))
	for i, fh := range req.files {
		f, err := fh.Open()
		if err != nil {
			return 0, fmt.Errorf("open upload %s: %w", fh.Filename, err)
		}
		digest, err := store.DigestReader(f)
		f.Close()
		if err != nil {
			return 0, err
		}
		imports[i] = store.Import{
			File:   fh.Filename,
			Digest: digest,
			Target: string(req.opts.Target),
			Rows:   report.Files[i].Rows,
		}
	}
	return s.loader.LoadRun(ctx, table.Sanitize(req.pgTable), merged, imports)
}
