package telegram

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"weee-bot/api/internal/store"
	"weee-bot/api/internal/weee"
)

// Router relays classifications between a requester and a reviewer:
// the requester sends a photo, the reviewer receives the report, and the
// reviewer's reply goes back to the requester.
type Router struct {
	Bot        *tgbotapi.BotAPI
	Classifier *weee.Classifier
	Reports    *store.ReportRepo // optional

	ReviewerChatID int64
	UseArbiter     bool

	// last requester awaiting the reviewer's confirmation
	lastRequester sync.Map // int64(1) -> chatID
}

const requestTimeout = 120 * time.Second

func (r *Router) HandleUpdate(upd tgbotapi.Update) {
	if upd.Message == nil {
		return
	}
	cid := upd.Message.Chat.ID

	if upd.Message.IsCommand() {
		r.handleCommand(upd)
		return
	}

	if len(upd.Message.Photo) > 0 {
		r.acceptPhoto(*upd.Message)
		return
	}

	// Reviewer text: relay as confirmation to the waiting requester.
	if cid == r.ReviewerChatID && upd.Message.Text != "" {
		r.relayConfirmation(upd.Message.Text)
		return
	}

	r.send(cid, "Envie uma imagem para classificação WEEE.")
}

func (r *Router) handleCommand(upd tgbotapi.Update) {
	cid := upd.Message.Chat.ID
	switch upd.Message.Command() {
	case "start":
		r.send(cid, "Envie uma foto do resíduo eletrônico — retorno a categoria WEEE.\nComandos: /health")
	case "health":
		r.send(cid, "✅ OK")
	default:
		r.send(cid, "Comando desconhecido")
	}
}

func (r *Router) relayConfirmation(text string) {
	v, ok := r.lastRequester.Load(int64(1))
	if !ok {
		r.send(r.ReviewerChatID, "Nenhuma solicitação pendente.")
		return
	}
	requester := v.(int64)
	r.send(requester, "Confirmação do revisor: "+text)
	r.send(r.ReviewerChatID, "Confirmação recebida e enviada ao solicitante.")
	r.lastRequester.Delete(int64(1))
}

// classifyAndReport runs the pipeline and forwards the report to the
// reviewer with the top object's crop when there is one.
func (r *Router) classifyAndReport(requesterChat int64, imgBytes []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	res, err := r.Classifier.Classify(ctx, imgBytes, r.UseArbiter)
	if err != nil {
		r.SendError(requesterChat, err)
		return
	}

	if r.Reports != nil {
		if err := r.Reports.Save(ctx, "telegram", fmt.Sprint(requesterChat), res); err != nil {
			log.Printf("save report %s: %v", res.SessionID, err)
		}
	}

	report := weee.FormatReport(res)
	if r.ReviewerChatID == 0 || r.ReviewerChatID == requesterChat {
		// No separate reviewer configured: answer the sender directly.
		r.send(requesterChat, report)
		return
	}

	r.sendReport(r.ReviewerChatID, report, res)
	r.lastRequester.Store(int64(1), requesterChat)
	r.send(requesterChat, "Imagem recebida. O laudo foi enviado ao revisor.")
}

func (r *Router) sendReport(chatID int64, report string, res *weee.Result) {
	if res.TopObject != nil && res.TopObject.CropURL != "" {
		if crop, err := r.Classifier.Detector.Artifacts.ReadByURL(res.TopObject.CropURL); err == nil {
			photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: "crop.jpg", Bytes: crop})
			photo.Caption = report
			if _, err := r.Bot.Send(photo); err == nil {
				return
			}
		}
	}
	r.send(chatID, report)
}

func (r *Router) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	_, _ = r.Bot.Send(msg)
}

func (r *Router) SendError(chatID int64, err error) {
	log.Printf("chat %d: %v", chatID, err)
	r.send(chatID, "Erro ao analisar a imagem. Tente novamente.")
}
