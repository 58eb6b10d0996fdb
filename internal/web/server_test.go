package web

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/nlexport/internal/config"
	"github.com/JonMunkholm/nlexport/internal/core"
)

const runA = `"BehaviorSpace results (NetLogo 6.2.0)"
"sweep-a"
"01/02/2024"
"min-pxcor","max-pxcor"
"-5","5"
"[run number]","density","[step]","count turtles"
"1","50","0","10"
"1","50","1","12"
`

const runB = `"BehaviorSpace results (NetLogo 6.2.0)"
"sweep-b"
"01/02/2024"
"min-pxcor","max-pxcor"
"-5","5"
"[run number]","speed","[step]","count turtles"
"1","0.5","0","7"
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeout: time.Minute, ShutdownTimeout: time.Second},
		Upload: config.UploadConfig{
			MaxFileSize:   1 << 20,
			MaxFiles:      5,
			MaxConcurrent: 2,
			MaxWaitTime:   time.Second,
			Timeout:       time.Minute,
		},
		Convert: config.ConvertConfig{Separator: `\t`, NA: "NA", Format: "tsv"},
		Logging: config.LoggingConfig{Level: "info", Format: "text"},
	}
}

func newTestServer(cfg *config.Config) *Server {
	return NewServer(cfg, core.NewLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime))
}

type part struct {
	name, body string
}

func uploadRequest(t *testing.T, files []part, fields map[string][]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		fw, err := mw.CreateFormFile("file", f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.body))
		require.NoError(t, err)
	}
	for k, vs := range fields {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/convert", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleConvert_MergesUploads(t *testing.T) {
	s := newTestServer(testConfig())
	rec := serve(s, uploadRequest(t, []part{{"a.csv", runA}, {"b.csv", runB}}, nil))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "tab-separated-values")
	assert.Equal(t, "3", rec.Header().Get("X-Row-Count"))
	assert.NotEmpty(t, rec.Header().Get("X-Run-Id"))

	lines := strings.Split(strings.TrimSuffix(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "run\tdensity\tstep\tcount.turtles\tspeed", lines[0])
	assert.Equal(t, "1\tNA\t0\t7\t0.5", lines[3])
}

func TestHandleConvert_FormOptions(t *testing.T) {
	s := newTestServer(testConfig())
	rec := serve(s, uploadRequest(t, []part{{"a.csv", runA}, {"b.csv", runB}}, map[string][]string{
		"sep":  {","},
		"na":   {"."},
		"skip": {"1", "0"},
	}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "run,density,step,count.turtles,speed\n1,50,1,12,.\n1,.,0,7,0.5\n", rec.Body.String())
}

func TestHandleConvert_Xlsx(t *testing.T) {
	s := newTestServer(testConfig())
	rec := serve(s, uploadRequest(t, []part{{"a.csv", runA}}, map[string][]string{"format": {"xlsx"}}))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestHandleConvert_Errors(t *testing.T) {
	tests := []struct {
		name       string
		files      []part
		fields     map[string][]string
		wantStatus int
		wantCode   string
	}{
		{
			name:       "no file",
			fields:     map[string][]string{"target": {"plots"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE004",
		},
		{
			name:       "not an export",
			files:      []part{{"x.csv", "who,color\n0,15\n"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "FMT001",
		},
		{
			name:       "wrong target for kind",
			files:      []part{{"a.csv", runA}},
			fields:     map[string][]string{"target": {"turtles"}},
			wantStatus: http.StatusUnprocessableEntity,
			wantCode:   "FMT006",
		},
		{
			name:       "database not configured",
			files:      []part{{"a.csv", runA}},
			fields:     map[string][]string{"pg_table": {"runs"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR000",
		},
		{
			name:       "bad skip",
			files:      []part{{"a.csv", runA}},
			fields:     map[string][]string{"skip": {"-1"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR000",
		},
		{
			name:       "unknown charset",
			files:      []part{{"a.csv", runA}},
			fields:     map[string][]string{"encoding": {"ebcdic"}},
			wantStatus: http.StatusBadRequest,
			wantCode:   "FILE003",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(testConfig())
			rec := serve(s, uploadRequest(t, tt.files, tt.fields))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
			assert.Equal(t, tt.wantCode, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestHandleConvert_StepLimit(t *testing.T) {
	plots := strings.Join([]string{
		`"export-plots data (NetLogo 6.2.0)"`,
		`"01/02/2024"`,
		``,
		`"MODEL SETTINGS"`,
		`"n"`,
		`"1"`,
		``,
		`"p"`,
		`"number of pens"`,
		`"1"`,
		``,
		`"pen name","mode"`,
		`"""a""","0"`,
		``,
		`"a","","",""`,
		`"x","y","color","pen down?"`,
		`"3000000","1","0","true"`,
	}, "\n") + "\n"

	cfg := testConfig()
	cfg.Convert.MaxSteps = 1000
	rec := serve(newTestServer(cfg), uploadRequest(t, []part{{"p.csv", plots}}, nil))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	assert.Equal(t, "FMT002", body.Code)
}

func TestHandleConvert_RemovesSpilledFiles(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	saved := multipartMemory
	multipartMemory = 0
	t.Cleanup(func() { multipartMemory = saved })

	tooMany := make([]part, 6)
	for i := range tooMany {
		tooMany[i] = part{"a.csv", runA}
	}
	tests := []struct {
		name       string
		files      []part
		fields     map[string][]string
		wantStatus int
	}{
		{"too many files", tooMany, nil, http.StatusBadRequest},
		{"bad skip", []part{{"a.csv", runA}}, map[string][]string{"skip": {"x"}}, http.StatusBadRequest},
		{"converted", []part{{"a.csv", runA}}, nil, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(newTestServer(testConfig()), uploadRequest(t, tt.files, tt.fields))
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			left, err := os.ReadDir(tmp)
			require.NoError(t, err)
			assert.Empty(t, left)
		})
	}
}

func TestHandleConvert_HTMXError(t *testing.T) {
	s := newTestServer(testConfig())
	req := uploadRequest(t, []part{{"x.csv", "garbage\n"}}, nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(s, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Code: FMT001")
}

func TestHandleConvert_Busy(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxConcurrent = 1
	cfg.Upload.MaxWaitTime = 10 * time.Millisecond
	s := newTestServer(cfg)
	require.True(t, s.limiter.TryAcquire())
	defer s.limiter.Release()

	rec := serve(s, uploadRequest(t, []part{{"a.csv", runA}}, nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "CNV001")
}

func TestHandleConvert_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	s := newTestServer(cfg)

	rec := serve(s, uploadRequest(t, []part{{"a.csv", runA}}, nil))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Contains(t, rec.Body.String(), "FILE001")
}

func TestHandleConvert_APIKey(t *testing.T) {
	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RequireAPIKey: true, APIKeys: []string{"secret"}}
	s := newTestServer(cfg)

	rec := serve(s, uploadRequest(t, []part{{"a.csv", runA}}, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := uploadRequest(t, []part{{"a.csv", runA}}, nil)
	req.Header.Set("X-API-Key", "secret")
	rec = serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, 2, body.Limiter.MaxConcurrent)
	assert.Equal(t, 2, body.Limiter.Available)
}

func TestHandleIndex(t *testing.T) {
	s := newTestServer(testConfig())
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	body := rec.Body.String()
	assert.Contains(t, body, `<option value="experiment">experiment</option>`)
	assert.Contains(t, body, `<option value="xlsx">XLSX</option>`)
}

func TestWantsJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/convert", nil)
	assert.True(t, wantsJSON(req))

	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	assert.False(t, wantsJSON(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Accept", "application/json")
	assert.True(t, wantsJSON(req))
}

func TestHandlePreview(t *testing.T) {
	s := newTestServer(testConfig())
	req := uploadRequest(t, []part{{"a.csv", runA}, {"b.csv", runB}}, nil)
	req.URL.Path = "/api/preview"
	req.URL.RawQuery = "rows=1"
	rec := serve(s, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body core.PreviewResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"run", "density", "step", "count.turtles", "speed"}, body.Headers)
	assert.Equal(t, [][]string{{"1", "50", "0", "10", "NA"}}, body.Samples)
	assert.True(t, body.Truncated)
	require.Len(t, body.Columns, 5)
	assert.Equal(t, 1, body.Columns[4].Count)
	assert.Equal(t, 3, body.Report.Rows)
}
