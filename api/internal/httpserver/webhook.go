package httpserver

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"weee-bot/api/internal/weee"
	"weee-bot/api/internal/whatsapp"
)

const webhookTimeout = 120 * time.Second

// metaWebhook handles the WhatsApp Cloud API webhook.
// GET is the subscription handshake (hub.challenge echo); POST carries
// message events: requester photo -> classify and relay the report to the
// reviewer; reviewer text -> relay the confirmation to the requester.
func (s *Server) metaWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		mode := r.URL.Query().Get("hub.mode")
		token := r.URL.Query().Get("hub.verify_token")
		challenge := r.URL.Query().Get("hub.challenge")
		if mode == "subscribe" && token == s.Cfg.MetaVerifyToken && s.Cfg.MetaVerifyToken != "" {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte(challenge))
			return
		}
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), webhookTimeout)
	defer cancel()
	for _, msg := range whatsapp.ParseEvent(body) {
		s.handleInbound(ctx, msg)
	}

	// Always 200: Meta retries anything else and the failure is ours to log.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleInbound(ctx context.Context, msg whatsapp.Message) {
	requester := whatsapp.NormalizePhone(s.Cfg.RequesterNumber)
	reviewer := whatsapp.NormalizePhone(s.Cfg.ReviewerNumber)
	from := whatsapp.NormalizePhone(msg.From)

	if requester == "" || reviewer == "" {
		log.Printf("webhook: USER01_WHATSAPP/USER02_WHATSAPP not configured")
		return
	}

	switch from {
	case requester:
		s.handleRequester(ctx, msg)
	case reviewer:
		s.handleReviewer(ctx, msg)
	default:
		_ = s.WhatsApp.SendText(ctx, msg.From,
			"Este número aceita: (1) imagem do solicitante para classificação, (2) confirmação do revisor.")
	}
}

func (s *Server) handleRequester(ctx context.Context, msg whatsapp.Message) {
	if msg.Image == nil {
		_ = s.WhatsApp.SendText(ctx, msg.From, "Envie uma imagem para classificação WEEE.")
		return
	}

	img, err := s.WhatsApp.DownloadMedia(ctx, msg.Image.ID)
	if err != nil {
		log.Printf("webhook: download media %s: %v", msg.Image.ID, err)
		_ = s.WhatsApp.SendText(ctx, msg.From, "Falha ao baixar a imagem. Tente novamente.")
		return
	}

	res, err := s.Classifier.Classify(ctx, img, s.Cfg.UseLLMArbiter)
	if err != nil {
		log.Printf("webhook: classify: %v", err)
		_ = s.WhatsApp.SendText(ctx, msg.From, "Erro ao analisar a imagem. Tente novamente.")
		return
	}
	if s.Reports != nil {
		if err := s.Reports.Save(ctx, "whatsapp", msg.From, res); err != nil {
			log.Printf("save report %s: %v", res.SessionID, err)
		}
	}

	report := weee.FormatReport(res)
	cropLink := ""
	if res.TopObject != nil && res.TopObject.CropURL != "" {
		cropLink = s.publicURL(res.TopObject.CropURL)
	}

	if cropLink != "" {
		err = s.WhatsApp.SendImage(ctx, s.Cfg.ReviewerNumber, cropLink, report)
	} else {
		err = s.WhatsApp.SendText(ctx, s.Cfg.ReviewerNumber, report)
	}
	if err != nil {
		log.Printf("webhook: send report to reviewer: %v", err)
		_ = s.WhatsApp.SendText(ctx, msg.From, "Erro ao encaminhar o laudo ao revisor.")
		return
	}

	_ = s.WhatsApp.SendText(ctx, msg.From, "Imagem recebida. O laudo foi enviado ao revisor.")
}

func (s *Server) handleReviewer(ctx context.Context, msg whatsapp.Message) {
	text := "Confirmação recebida."
	if msg.Text != nil && strings.TrimSpace(msg.Text.Body) != "" {
		text = strings.TrimSpace(msg.Text.Body)
	}
	if err := s.WhatsApp.SendText(ctx, s.Cfg.RequesterNumber, "Confirmação do revisor: "+text); err != nil {
		log.Printf("webhook: relay confirmation: %v", err)
		_ = s.WhatsApp.SendText(ctx, msg.From, "Erro ao enviar a confirmação ao solicitante.")
		return
	}
	_ = s.WhatsApp.SendText(ctx, msg.From, "Confirmação recebida e enviada ao solicitante.")
}

// publicURL prefixes artifact paths with the externally reachable base URL.
func (s *Server) publicURL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(s.Cfg.PublicBaseURL), "/")
	if base == "" || strings.HasPrefix(path, "http") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}
