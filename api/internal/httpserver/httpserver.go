package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"weee-bot/api/internal/config"
	"weee-bot/api/internal/store"
	"weee-bot/api/internal/vision"
	"weee-bot/api/internal/weee"
	"weee-bot/api/internal/whatsapp"
)

type Server struct {
	Cfg        *config.Config
	Classifier *weee.Classifier
	WhatsApp   *whatsapp.Client
	Reports    *store.ReportRepo // optional
}

// Routes registers every handler on the mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.healthz)
	mux.HandleFunc("/api/classify", s.apiClassify)
	mux.HandleFunc("/api/analyze", s.apiAnalyze)
	mux.HandleFunc("/webhook/whatsapp", s.metaWebhook)
	mux.Handle("/static/", http.StripPrefix("/static/",
		http.FileServer(http.Dir(s.Cfg.StaticDir))))
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("weee classification service"))
	})
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// readImage extracts the multipart "image" field.
func readImage(r *http.Request) ([]byte, error) {
	f, _, err := r.FormFile("image")
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func (s *Server) useArbiter(r *http.Request) bool {
	if qs := r.URL.Query().Get("llm"); qs != "" {
		v := strings.ToLower(qs)
		return v == "1" || v == "true" || v == "yes"
	}
	return s.Cfg.UseLLMArbiter
}

func (s *Server) apiClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	img, err := readImage(r)
	if err != nil {
		http.Error(w, "missing image: "+err.Error(), http.StatusBadRequest)
		return
	}

	res, err := s.Classifier.Classify(r.Context(), img, s.useArbiter(r))
	if err != nil {
		writeClassifyError(w, err)
		return
	}
	if s.Reports != nil {
		if err := s.Reports.Save(r.Context(), "api", r.RemoteAddr, res); err != nil {
			log.Printf("save report %s: %v", res.SessionID, err)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) apiAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	img, err := readImage(r)
	if err != nil {
		http.Error(w, "missing image: "+err.Error(), http.StatusBadRequest)
		return
	}

	ov, err := s.Classifier.ClassifyAll(r.Context(), img, s.useArbiter(r), s.Cfg.EnableGridScan)
	if err != nil {
		writeClassifyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ov)
}

func writeClassifyError(w http.ResponseWriter, err error) {
	var apiErr *vision.APIError
	switch {
	case errors.Is(err, vision.ErrDecode):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.As(err, &apiErr):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
