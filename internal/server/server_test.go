package server

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/config"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/converter"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/metrics"
	"github.com/AlefeBarboza/RELATORIO-AX00007/internal/workbook"
)

const export = "Almoxarifado:§001 - ORGAO - UNIDADE - SETOR - Central§§\n" +
	"1§10 - Parafuso§UN§compra§END1§5,00§10,00§5,00§10,00§10,00§20,00§\n" +
	"Item§Código - Material§U.M.§\n" +
	"\n" +
	"Almoxarifado:§002 - ORGAO - UNIDADE - SETOR - Norte§§\n" +
	"1§12 - Arruela§CX§reposição§END9§1,00§3,00§1,00§3,00§2,00§6,00§\n"

func newTestServer(t *testing.T, maxUpload int64) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	cfg := config.Default()
	conv, err := converter.New(cfg, nil)
	require.NoError(t, err)

	settings := cfg.Server
	if maxUpload > 0 {
		settings.MaxUploadBytes = maxUpload
	}

	m := metrics.New()
	ts := httptest.NewServer(New(conv, settings, m, nil).Routes())
	t.Cleanup(ts.Close)
	return ts, m
}

func multipartBody(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	decodeJSON(t, resp, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestPreview(t *testing.T) {
	ts, _ := newTestServer(t, 0)
	body, contentType := multipartBody(t, "posicao.txt", export)

	resp, err := http.Post(ts.URL+"/api/preview", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got struct {
		RequestID string `json:"request_id"`
		File      string `json:"file"`
		Records   []struct {
			Group     string  `json:"group"`
			Code      string  `json:"code"`
			QtyTotal  *string `json:"qty_total"`
			UnitValue *string `json:"unit_value"`
		} `json:"records"`
		Diagnostics struct {
			SkippedLines int      `json:"skipped_lines"`
			Groups       []string `json:"groups"`
		} `json:"diagnostics"`
		Sheets []workbook.SheetInfo `json:"sheets"`
	}
	decodeJSON(t, resp, &got)

	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "posicao.txt", got.File)
	require.Len(t, got.Records, 2)
	assert.Equal(t, "001 - Central", got.Records[0].Group)
	require.NotNil(t, got.Records[0].UnitValue)
	assert.Equal(t, "2", *got.Records[0].UnitValue)
	assert.Equal(t, 1, got.Diagnostics.SkippedLines)
	assert.Equal(t, []string{"001 - Central", "002 - Norte"}, got.Diagnostics.Groups)
	assert.Len(t, got.Sheets, 2)
}

func TestPreviewRawBody(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp, err := http.Post(ts.URL+"/api/preview", "text/plain; charset=utf-8", strings.NewReader(export))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got map[string]any
	decodeJSON(t, resp, &got)
	assert.NotContains(t, got, "file")
	assert.Len(t, got["records"], 2)
}

func TestConvertWorkbook(t *testing.T) {
	ts, m := newTestServer(t, 0)
	body, contentType := multipartBody(t, "posicao.txt", export)

	resp, err := http.Post(ts.URL+"/api/convert", contentType, body)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename=posicao_consolidado.xlsx`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "2", resp.Header.Get("X-Estoque-Records"))

	summary, err := workbook.Inspect(resp.Body)
	require.NoError(t, err)
	require.Len(t, summary.Sheets, 2)
	assert.Equal(t, "002 - Norte", summary.Sheets[1].Name)

	metricsResp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer metricsResp.Body.Close()
	text, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(text), `estoque_conversions_total{outcome="success",source="http"} 1`)
	assert.NotNil(t, m.Registry())
}

func TestConvertCSV(t *testing.T) {
	ts, _ := newTestServer(t, 0)

	resp, err := http.Post(ts.URL+"/api/convert?format=csv", "text/plain", strings.NewReader(export))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, `attachment; filename=estoque_consolidado.csv`, resp.Header.Get("Content-Disposition"))
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\r\n"))
	assert.Contains(t, string(data), "Parafuso")
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name        string
		maxUpload   int64
		contentType string
		body        io.Reader
		status      int
		message     string
	}{
		{
			name:        "empty body",
			contentType: "text/plain",
			body:        strings.NewReader(""),
			status:      http.StatusBadRequest,
			message:     "no export uploaded",
		},
		{
			name:        "invalid utf-8",
			contentType: "text/plain",
			body:        bytes.NewReader([]byte{'a', 0xff, 'b'}),
			status:      http.StatusUnprocessableEntity,
			message:     "utf-8",
		},
		{
			name:        "too large",
			maxUpload:   16,
			contentType: "text/plain",
			body:        strings.NewReader(export),
			status:      http.StatusRequestEntityTooLarge,
			message:     "upload exceeds 16 bytes",
		},
		{
			name:        "multipart without file field",
			contentType: "multipart/form-data; boundary=xyz",
			body:        strings.NewReader("--xyz--\r\n"),
			status:      http.StatusBadRequest,
			message:     "no export uploaded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, _ := newTestServer(t, tt.maxUpload)

			resp, err := http.Post(ts.URL+"/api/convert", tt.contentType, tt.body)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			var got errorResponse
			decodeJSON(t, resp, &got)
			assert.Contains(t, got.Error, tt.message)
			assert.NotEmpty(t, got.RequestID)
		})
	}
}
