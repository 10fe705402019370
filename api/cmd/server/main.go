package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"weee-bot/api/internal/arbiter"
	"weee-bot/api/internal/config"
	"weee-bot/api/internal/httpserver"
	"weee-bot/api/internal/store"
	"weee-bot/api/internal/vision"
	"weee-bot/api/internal/weee"
	"weee-bot/api/internal/whatsapp"
)

func main() {
	cfg := config.Load()

	var reports *store.ReportRepo
	if dsn := strings.TrimSpace(cfg.DatabaseURL); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("sql.Open: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("db.Ping: %v", err)
		}
		cancel()
		log.Printf("db connected")
		reports = store.NewReportRepo(db)
	} else {
		log.Printf("DATABASE_URL empty: reports are not persisted")
	}

	detector := &vision.Detector{
		Client:    vision.NewAzureClient(cfg.VisionEndpoint, cfg.VisionKey),
		Artifacts: vision.NewArtifactStore(cfg.StaticDir),
		Params: vision.Params{
			MinSide:        cfg.MinSide,
			MaxSide:        cfg.MaxSide,
			GridSize:       cfg.GridSize,
			GridMaxExtra:   cfg.GridMaxExtra,
			GridIoU:        cfg.GridIoU,
			GridMinObjects: vision.DefaultParams().GridMinObjects,
		},
	}
	classifier := &weee.Classifier{
		Detector: detector,
		Arbiter:  arbiter.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel),
		Params: weee.Params{
			NonEEEMinHits:  cfg.NonEEEMinHits,
			LargeSizeRatio: cfg.LargeSizeRatio,
			SubpartIoU:     cfg.SubpartIoU,
		},
	}

	// The client errors out on use when the Meta credentials are empty;
	// the webhook handler logs and keeps serving.
	srv := &httpserver.Server{
		Cfg:        cfg,
		Classifier: classifier,
		WhatsApp:   whatsapp.New(cfg.MetaToken, cfg.MetaPhoneID),
		Reports:    reports,
	}

	mux := http.NewServeMux()
	srv.Routes(mux)

	addr := "0.0.0.0:" + cfg.Port
	log.Printf("listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal(err)
	}
}
