package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/converter"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/csvexport"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/txtparser"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/types"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/validation"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/workbook"
	"github.com/AlefeBarboza/RELATORIO-AX00007/pkg/utils"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	defaultBaseName = "estoque"
	uploadField     = "file"
)

var errMissingUpload = errors.New("no export uploaded")

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

type previewResponse struct {
	RequestID   string                       `json:"request_id,omitempty"`
	File        string                       `json:"file,omitempty"`
	Records     []types.InventoryRecord      `json:"records"`
	Diagnostics txtparser.Diagnostics        `json:"diagnostics"`
	Validation  *validation.ValidationResult `json:"validation"`
	Sheets      []workbook.SheetInfo         `json:"sheets"`
	Collisions  []workbook.Collision         `json:"collisions,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// preview handles POST /api/preview.
func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	out, name, ok := s.process(w, r)
	if !ok {
		return
	}

	records := out.Parse.Records
	if records == nil {
		records = []types.InventoryRecord{}
	}
	sheets := out.Sheets
	if sheets == nil {
		sheets = []workbook.SheetInfo{}
	}

	render.JSON(w, r, previewResponse{
		RequestID:   middleware.GetReqID(r.Context()),
		File:        name,
		Records:     records,
		Diagnostics: out.Parse.Diagnostics,
		Validation:  out.Validation,
		Sheets:      sheets,
		Collisions:  out.Collisions,
	})
}

// convert handles POST /api/convert. With ?format=csv it answers with the
// semicolon separated table instead of the workbook.
func (s *Server) convert(w http.ResponseWriter, r *http.Request) {
	out, name, ok := s.process(w, r)
	if !ok {
		return
	}

	base := defaultBaseName
	if name != "" {
		base = utils.OriginalName(name)
	}

	w.Header().Set("X-Estoque-Records", strconv.Itoa(len(out.Parse.Records)))
	w.Header().Set("X-Estoque-Sheets", strconv.Itoa(len(out.Sheets)))

	if strings.EqualFold(r.URL.Query().Get("format"), "csv") {
		var buf bytes.Buffer
		if err := csvexport.Write(&buf, out.Parse.Records, csvexport.DefaultOptions()); err != nil {
			s.fail(w, r, http.StatusInternalServerError, err)
			return
		}
		attachment(w, "text/csv; charset=utf-8", base+"_consolidado.csv")
		w.Write(buf.Bytes())
		return
	}

	attachment(w, xlsxContentType, base+"_consolidado.xlsx")
	w.Write(out.Workbook)
}

// process reads the upload and runs the conversion. On failure it has
// already answered the request.
func (s *Server) process(w http.ResponseWriter, r *http.Request) (*converter.Output, string, bool) {
	start := time.Now()

	raw, name, err := s.readUpload(w, r)
	if err != nil {
		s.metrics.ObserveConversion(metrics.SourceHTTP, metrics.OutcomeError, time.Since(start))
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.fail(w, r, http.StatusRequestEntityTooLarge,
				fmt.Errorf("upload exceeds %d bytes", s.settings.MaxUploadBytes))
		default:
			s.fail(w, r, http.StatusBadRequest, err)
		}
		return nil, "", false
	}

	out, err := s.conv.Convert(r.Context(), raw)
	s.metrics.ObserveConversion(metrics.SourceHTTP, outcomeOf(err), time.Since(start))
	if err != nil {
		status := http.StatusInternalServerError
		if converter.IsDecodingError(err) {
			status = http.StatusUnprocessableEntity
		}
		s.fail(w, r, status, err)
		return nil, "", false
	}

	s.metrics.ObserveOutput(len(out.Parse.Records), len(out.Sheets), out.Parse.Diagnostics.SkippedLines, len(out.Collisions))
	s.logger.InfoContext(r.Context(), "converted upload",
		slog.String("file", name),
		slog.Int("records", len(out.Parse.Records)),
		slog.Int("sheets", len(out.Sheets)),
	)

	return out, name, true
}

// readUpload returns the export bytes and, for multipart uploads, the
// client-side file name.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.settings.MaxUploadBytes))
	if err != nil {
		return nil, "", err
	}

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if len(body) == 0 {
			return nil, "", errMissingUpload
		}
		return body, "", nil
	}

	form, err := multipart.NewReader(bytes.NewReader(body), params["boundary"]).ReadForm(s.settings.MaxUploadBytes)
	if err != nil {
		return nil, "", fmt.Errorf("invalid multipart upload: %w", err)
	}
	defer form.RemoveAll()

	headers := form.File[uploadField]
	if len(headers) == 0 {
		return nil, "", errMissingUpload
	}

	file, err := headers[0].Open()
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, filepath.Base(headers[0].Filename), nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	reqID := middleware.GetReqID(r.Context())
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error(), RequestID: reqID})
}

func attachment(w http.ResponseWriter, contentType, filename string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
}

func outcomeOf(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeSuccess
}
