package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"certflow/pkg/authn"
	"certflow/pkg/db"
	"certflow/pkg/domain"
	"certflow/pkg/httpx"
	"certflow/services/attest/config"
	"certflow/services/attest/internal/idempotency"
	"certflow/services/attest/internal/notify"
	"certflow/services/attest/internal/qgen"
	"certflow/services/attest/internal/store"
	"certflow/services/attest/internal/workflow"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ctxKey int

const identityKey ctxKey = 0

func caller(r *http.Request) authn.Identity {
	id, _ := r.Context().Value(identityKey).(authn.Identity)
	return id
}

// requireAuth resolves the bearer token to an active user before any
// workflow endpoint runs.
func requireAuth(pool *pgxpool.Pool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authn.AuthenticateBearer(r.Context(), pool, r.Header.Get("Authorization"))
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid bearer token", nil)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, *id)))
		})
	}
}

func main() {
	cfg := config.Load()

	ctx := context.Background()
	pool := db.MustConnect(ctx, cfg.DatabaseURL)
	if err := ensureSchema(ctx, pool); err != nil {
		log.Fatalf("schema: %v", err)
	}

	st := store.New(pool)
	sink := notify.New(cfg.NotifyURL, cfg.NotifySecret)
	svc := workflow.New(st, sink, log.Default(), cfg.BaseLinkURL)
	if cfg.QgenURL != "" {
		svc.SetSuggester(qgen.New(cfg.QgenURL))
	}

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	r.Route("/attest", func(api chi.Router) {
		api.Use(requireAuth(pool))

		api.Post("/mandates", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Title         string `json:"title"`
				BackupOwnerID string `json:"backup_owner_id"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			m, err := svc.CreateMandate(r.Context(), caller(r).UserID, req.Title, req.BackupOwnerID)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "mandate": m})
		})

		api.Get("/mandates/{mandate_id}", func(w http.ResponseWriter, r *http.Request) {
			m, err := svc.GetMandate(r.Context(), chi.URLParam(r, "mandate_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "mandate": m})
		})

		api.Put("/mandates/{mandate_id}/owners", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				OwnerID       string `json:"owner_id"`
				BackupOwnerID string `json:"backup_owner_id"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			if err := svc.UpdateMandateOwners(r.Context(), caller(r).UserID, chi.URLParam(r, "mandate_id"), req.OwnerID, req.BackupOwnerID); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "updated": true})
		})

		api.Put("/mandates/{mandate_id}/status", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Status string `json:"status"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			if err := svc.SetMandateStatus(r.Context(), caller(r).UserID, chi.URLParam(r, "mandate_id"), domain.MandateStatus(req.Status)); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "status": req.Status})
		})

		api.Post("/mandates/{mandate_id}/certifications", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			c, err := svc.CreateCertification(r.Context(), caller(r).UserID, chi.URLParam(r, "mandate_id"), req.Title, req.Description)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 201, map[string]any{"request_id": httpx.NewRequestID(), "certification": c})
		})

		api.Get("/certifications/{certification_id}", func(w http.ResponseWriter, r *http.Request) {
			c, err := svc.GetCertification(r.Context(), chi.URLParam(r, "certification_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "certification": c})
		})

		api.Put("/certifications/{certification_id}", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Title       string `json:"title"`
				Description string `json:"description"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			if err := svc.UpdateCertificationDetails(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"), req.Title, req.Description); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "updated": true})
		})

		api.Put("/certifications/{certification_id}/questions", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Questions []domain.Question `json:"questions"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			qs, err := svc.SetQuestions(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"), req.Questions)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "questions": qs})
		})

		api.Post("/certifications/{certification_id}/questions:suggest", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Requirement string `json:"requirement"`
				Limit       int    `json:"limit"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			qs, err := svc.MergeSuggestedQuestions(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"), req.Requirement, req.Limit)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "questions": qs})
		})

		api.Put("/certifications/{certification_id}/deadline", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Deadline time.Time `json:"deadline"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			if err := svc.SetDeadline(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"), req.Deadline); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "deadline": req.Deadline})
		})

		api.Post("/certifications/{certification_id}:publish", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "certification_id")
			if err := svc.Publish(r.Context(), caller(r).UserID, id); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "certification_id": id, "status": domain.CertificationOpen})
		})

		api.Post("/certifications/{certification_id}:close", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "certification_id")
			if err := svc.Close(r.Context(), caller(r).UserID, id); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "certification_id": id, "status": domain.CertificationClosed})
		})

		api.Delete("/certifications/{certification_id}", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.DeleteCertification(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id")); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "deleted": true})
		})

		api.Get("/certifications/{certification_id}/assignments", func(w http.ResponseWriter, r *http.Request) {
			as, err := svc.Assignments(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "assignments": as})
		})

		api.Put("/certifications/{certification_id}/assignments", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Level1 []workflow.AssignmentEntry `json:"level1"`
				Level2 []workflow.AssignmentEntry `json:"level2"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			id := chi.URLParam(r, "certification_id")
			if err := svc.ReplaceAssignments(r.Context(), caller(r).UserID, id, req.Level1, req.Level2); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			as, err := svc.Assignments(r.Context(), caller(r).UserID, id)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "assignments": as})
		})

		api.Delete("/certifications/{certification_id}/assignments/{attester_id}", func(w http.ResponseWriter, r *http.Request) {
			if err := svc.Unassign(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"), chi.URLParam(r, "attester_id")); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "removed": true})
		})

		api.Get("/certifications/{certification_id}/response", func(w http.ResponseWriter, r *http.Request) {
			resp, err := svc.Response(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "response": resp})
		})

		api.Put("/certifications/{certification_id}/response", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				Answers []domain.Answer `json:"answers"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			savedAt, err := svc.SaveProgress(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"), req.Answers)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "last_saved_at": savedAt})
		})

		api.Post("/certifications/{certification_id}/response:submit", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "certification_id")
			who := idempotency.Caller{UserID: caller(r).UserID, IdempotencyKey: r.Header.Get("Idempotency-Key")}
			endpoint := "POST /certifications/" + id + "/response:submit"

			if status, body, replayed, err := idempotency.Replay(r.Context(), st, who, endpoint); err == nil && replayed {
				httpx.WriteJSON(w, status, body)
				return
			}

			var req struct {
				Answers []domain.Answer `json:"answers"`
			}
			if err := httpx.ReadJSON(r, &req); err != nil {
				httpx.WriteError(w, 400, "BAD_JSON", err.Error(), nil)
				return
			}
			resp, unlock, err := svc.Submit(r.Context(), who.UserID, id, req.Answers)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			body := map[string]any{
				"request_id":     httpx.NewRequestID(),
				"response":       resp,
				"level_unlocked": unlock.ShouldUnlock,
			}
			if err := idempotency.Save(r.Context(), st, who, endpoint, 200, body); err != nil {
				log.Printf("save idempotency record: %v", err)
			}
			httpx.WriteJSON(w, 200, body)
		})

		api.Get("/certifications/{certification_id}/progress", func(w http.ResponseWriter, r *http.Request) {
			report, err := svc.Progress(r.Context(), caller(r).UserID, chi.URLParam(r, "certification_id"))
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "progress": report})
		})

		api.Get("/certifications/{certification_id}/events", func(w http.ResponseWriter, r *http.Request) {
			id := chi.URLParam(r, "certification_id")
			if err := svc.AuthorizeManager(r.Context(), caller(r).UserID, id); err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			evs, err := st.ListEvents(r.Context(), id)
			if err != nil {
				httpx.WriteDomainError(w, err)
				return
			}
			httpx.WriteJSON(w, 200, map[string]any{"request_id": httpx.NewRequestID(), "events": evs})
		})
	})

	log.Printf("attest service listening on :%s", cfg.ServicePort)
	if err := http.ListenAndServe(":"+cfg.ServicePort, r); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
