package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/CristopherRL/talent-inbound-os/internal/model"
	"github.com/CristopherRL/talent-inbound-os/internal/pipeline"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for ingestion, processing, and progress streaming",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := resolvePort(servePort, cfg.Server.Port)
		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: buildRouter(env, ctx),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}
		return nil
	},
}

// buildRouter assembles the HTTP routes. serverCtx is the server's lifetime
// context; async pipeline runs are tied to it rather than to the request.
func buildRouter(env *appEnv, serverCtx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/interactions", handleCreateInteraction(env))
	r.Post("/interactions/{id}/process", handleProcess(env, serverCtx))
	r.Get("/interactions/{id}/events", handleEvents(env))
	r.Post("/opportunities/{id}/drafts", handleDraft(env))
	return r
}

// resolvePort prefers the flag value over the configured one.
func resolvePort(flag, configured int) int {
	if flag != 0 {
		return flag
	}
	return configured
}

// handleCreateInteraction ingests a recruiter message. An initial message
// without an opportunity gets a fresh one in DISCOVERY.
func handleCreateInteraction(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			CandidateID   string `json:"candidate_id"`
			OpportunityID string `json:"opportunity_id"`
			Source        string `json:"source"`
			Type          string `json:"type"`
			Content       string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.CandidateID == "" || req.Content == "" {
			writeError(w, http.StatusBadRequest, "candidate_id and content are required")
			return
		}

		interactionType := model.InteractionType(req.Type)
		if interactionType == "" {
			interactionType = model.InteractionInitial
		}
		source := model.InteractionSource(req.Source)
		if source == "" {
			source = model.SourceOther
		}

		opportunityID := req.OpportunityID
		if opportunityID == "" && interactionType == model.InteractionInitial {
			opp := &model.Opportunity{CandidateID: req.CandidateID}
			if err := env.Store.CreateOpportunity(r.Context(), opp); err != nil {
				zap.L().Error("create opportunity", zap.Error(err))
				writeError(w, http.StatusInternalServerError, "could not create opportunity")
				return
			}
			opportunityID = opp.ID
		}

		interaction := &model.Interaction{
			CandidateID:   req.CandidateID,
			OpportunityID: opportunityID,
			Source:        source,
			Type:          interactionType,
			RawContent:    req.Content,
		}
		if err := env.Store.CreateInteraction(r.Context(), interaction); err != nil {
			zap.L().Error("create interaction", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "could not create interaction")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]string{
			"interaction_id": interaction.ID,
			"opportunity_id": opportunityID,
		})
	}
}

// handleProcess triggers a pipeline run asynchronously. Progress is available
// on the events endpoint. The run uses the server's lifetime context, not the
// request's, so it survives the client disconnecting.
func handleProcess(env *appEnv, serverCtx context.Context) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interactionID := chi.URLParam(r, "id")
		if _, err := env.Store.GetInteraction(r.Context(), interactionID); err != nil {
			writeError(w, http.StatusNotFound, "interaction not found")
			return
		}

		go func() {
			if err := env.Processor.Process(serverCtx, interactionID); err != nil {
				zap.L().Error("async processing failed",
					zap.String("interaction_id", interactionID),
					zap.Error(err),
				)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":         "accepted",
			"interaction_id": interactionID,
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleEvents streams pipeline progress as Server-Sent Events until the run
// completes or the client disconnects.
func handleEvents(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		interactionID := chi.URLParam(r, "id")
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "streaming unsupported")
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		events := env.Emitter.Subscribe(interactionID)
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-events:
				if !open {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					zap.L().Error("marshal event", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
				flusher.Flush()
			}
		}
	}
}

// handleDraft generates an on-demand draft for an opportunity.
func handleDraft(env *appEnv) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		opportunityID := chi.URLParam(r, "id")
		var req struct {
			ResponseType           string `json:"response_type"`
			Language               string `json:"language"`
			AdditionalInstructions string `json:"additional_instructions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ResponseType == "" {
			req.ResponseType = string(model.ResponseExpressInterest)
		}

		draft, err := env.Drafts.Generate(r.Context(), pipeline.DraftRequest{
			OpportunityID:          opportunityID,
			ResponseType:           model.ResponseType(req.ResponseType),
			Language:               req.Language,
			AdditionalInstructions: req.AdditionalInstructions,
		})
		if err != nil {
			zap.L().Warn("draft generation failed",
				zap.String("opportunity_id", opportunityID),
				zap.Error(err),
			)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeJSON(w, http.StatusCreated, draft)
	}
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
