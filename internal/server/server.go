// Package server exposes the enhancement pipeline as a small web dashboard.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"github.com/soypat/pixtone"
	"github.com/soypat/pixtone/internal/imageio"
	"github.com/soypat/pixtone/pipeline"
)

type Server struct {
	log       zerolog.Logger
	runner    *pipeline.Runner
	opts      imageio.Options
	maxUpload int64
	mux       *http.ServeMux
}

// New creates the dashboard. maxUploadMB bounds the accepted request body.
func New(log zerolog.Logger, runner *pipeline.Runner, opts imageio.Options, maxUploadMB int) *Server {
	if runner == nil {
		runner = pipeline.NewRunner()
	}
	s := &Server{
		log:       log.With().Str("component", "server").Logger(),
		runner:    runner,
		opts:      opts,
		maxUpload: int64(maxUploadMB) << 20,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("POST /api/enhance", s.handleEnhance)
	s.mux.HandleFunc("GET /api/operators", s.handleOperators)
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok\n"))
	})
	return s
}

// Handler returns the request router wrapped with request logging.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		s.mux.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", addr).Msg("dashboard listening")
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleEnhance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.fail(w, pixtone.WrapError(pixtone.ErrInvalidParameter, "upload", err))
		return
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		s.fail(w, pixtone.WrapError(pixtone.ErrInvalidParameter, "upload", err))
		return
	}
	defer file.Close()
	src, err := imageio.Decode(file)
	if err != nil {
		s.fail(w, err)
		return
	}
	steps, err := StepsFromForm(r.MultipartForm.Value)
	if err != nil {
		s.fail(w, err)
		return
	}
	out, err := s.runner.Run(r.Context(), src, steps)
	if err != nil {
		s.fail(w, err)
		return
	}
	format := r.FormValue("format")
	if format == "" {
		format = "png"
	}
	data, f, err := imageio.EncodeBytes(out, format, s.opts)
	if err != nil {
		if errors.Is(err, pixtone.ErrSave) {
			err = pixtone.WrapError(pixtone.ErrInvalidParameter, "format", err)
		}
		s.fail(w, err)
		return
	}
	w.Header().Set("Content-Type", imageio.ContentType(f))
	w.Header().Set("X-Pixtone-Steps", pipeline.Format(steps))
	w.Write(data)
}

// StepsFromForm builds the dashboard pipeline from form fields. A "steps"
// field holds a full step list. Otherwise operator fields are taken in
// dashboard order, skipping empty ones; equalize is a checkbox.
func StepsFromForm(form map[string][]string) ([]pipeline.Step, error) {
	get := func(key string) string {
		if v := form[key]; len(v) > 0 {
			return strings.TrimSpace(v[0])
		}
		return ""
	}
	if text := get("steps"); text != "" {
		return pipeline.Parse(text)
	}
	var steps []pipeline.Step
	for _, op := range pipeline.Operators {
		value := get(op)
		if value == "" {
			continue
		}
		if op == "equalize" {
			if lo.Contains([]string{"on", "true", "1", "yes"}, strings.ToLower(value)) {
				steps = append(steps, &pipeline.Equalize{})
			}
			continue
		}
		if op == "saturation" && get("mode") != "" {
			value += ":" + get("mode")
		}
		parsed, err := pipeline.Parse(op + "=" + value)
		if err != nil {
			return nil, err
		}
		steps = append(steps, parsed...)
	}
	return steps, nil
}

// OperatorInfo describes a pipeline operator for API clients.
type OperatorInfo struct {
	Name     string        `json:"name"`
	Controls []ControlInfo `json:"controls"`
}

type ControlInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Default     any      `json:"default"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	Step        *float64 `json:"step,omitempty"`
	Options     []string `json:"options,omitempty"`
}

// Operators describes every operator with its default controls.
func Operators() []OperatorInfo {
	return lo.Map(pipeline.Operators, func(op string, _ int) OperatorInfo {
		step, _ := pipeline.NewStep(op)
		return OperatorInfo{Name: op, Controls: lo.Map(step.Controls(), describeControl)}
	})
}

func describeControl(c pixtone.Control, _ int) ControlInfo {
	name, desc := c.Describe()
	info := ControlInfo{Name: name, Description: desc, Default: c.ActualValue()}
	switch c := c.(type) {
	case *pixtone.ControlOrdered[float64]:
		info.Default = c.Default
		info.Min, info.Max, info.Step = &c.Min, &c.Max, &c.Step
	case interface{ Options() []string }:
		info.Options = c.Options()
	}
	return info
}

func (s *Server) handleOperators(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(Operators())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, Operators()); err != nil {
		s.log.Error().Err(err).Msg("render index")
	}
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, pixtone.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, pixtone.ErrLoad):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, err error) {
	status := StatusOf(err)
	s.log.Warn().Err(err).Int("status", status).Msg("enhance failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>pixtone</title></head>
<body>
<h1>Image Enhancement Dashboard</h1>
<form method="post" action="/api/enhance" enctype="multipart/form-data">
<p><input type="file" name="image" accept="image/*" required></p>
{{- range .}}
<fieldset><legend>{{.Name}}</legend>
{{- if not .Controls}}
<label><input type="checkbox" name="{{.Name}}" value="on"> enable</label>
{{- end}}
{{- $op := .Name}}
{{- range .Controls}}
{{- if .Options}}
<label title="{{.Description}}">{{.Name}} <select name="{{.Name}}">{{range .Options}}<option>{{.}}</option>{{end}}</select></label>
{{- else}}
<label title="{{.Description}}">{{.Name}} <input type="number" name="{{$op}}" value="{{.Default}}" min="{{.Min}}" max="{{.Max}}" step="{{.Step}}"></label>
{{- end}}
{{- end}}
</fieldset>
{{- end}}
<p><select name="format"><option>png</option><option>jpg</option><option>tiff</option><option>bmp</option></select>
<button type="submit">Enhance</button></p>
</form>
</body>
</html>
`))
