package fbbot

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	coreconfig "github.com/grepto/pizza-bot/core/config"
	"github.com/grepto/pizza-bot/core/logger"
	"github.com/grepto/pizza-bot/internal/engine"
)

const component = "fbbot"

// Namespace prefixes Facebook user keys in the state store.
const Namespace = "facebook"

// Webhook receives Messenger page events and feeds them to the engine.
type Webhook struct {
	cfg    *coreconfig.Config
	engine *engine.Engine
	router chi.Router
}

// NewWebhook wires the verification handshake and the event route.
func NewWebhook(cfg *coreconfig.Config, e *engine.Engine) *Webhook {
	w := &Webhook{cfg: cfg, engine: e}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Get("/webhook", w.verify)
	r.Post("/webhook", w.receive)
	w.router = r
	return w
}

// Router exposes the HTTP handler, mainly for tests.
func (w *Webhook) Router() http.Handler { return w.router }

// Run serves the webhook until ctx is cancelled.
func (w *Webhook) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              w.cfg.Facebook.Listen,
		Handler:           w.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info(ctx, component, "webhook_started", slog.String("listen", w.cfg.Facebook.Listen))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// verify answers the subscription handshake: echo hub.challenge when the
// verify token matches.
func (w *Webhook) verify(rw http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" || q.Get("hub.verify_token") != w.cfg.Facebook.VerifyToken {
		http.Error(rw, "verification token mismatch", http.StatusForbidden)
		return
	}
	_, _ = rw.Write([]byte(q.Get("hub.challenge")))
}

type fbAttachment struct {
	Type    string `json:"type"`
	Payload struct {
		Coordinates struct {
			Lat  float64 `json:"lat"`
			Long float64 `json:"long"`
		} `json:"coordinates"`
	} `json:"payload"`
}

type fbMessage struct {
	Text        string         `json:"text"`
	Attachments []fbAttachment `json:"attachments"`
}

type fbPostback struct {
	Payload string `json:"payload"`
}

type fbMessaging struct {
	Sender struct {
		ID string `json:"id"`
	} `json:"sender"`
	Message  *fbMessage  `json:"message"`
	Postback *fbPostback `json:"postback"`
}

type webhookBody struct {
	Object string `json:"object"`
	Entry  []struct {
		Messaging []fbMessaging `json:"messaging"`
	} `json:"entry"`
}

// receive decodes page events and dispatches each to the engine. The
// response is always 200: Messenger redelivers on any other status, and a
// failed dispatch already left the conversation parked for the user's own
// retry.
func (w *Webhook) receive(rw http.ResponseWriter, r *http.Request) {
	var body webhookBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(rw, "malformed body", http.StatusBadRequest)
		return
	}
	if body.Object != "page" {
		rw.WriteHeader(http.StatusOK)
		return
	}

	ctx := r.Context()
	for _, entry := range body.Entry {
		for _, msg := range entry.Messaging {
			ev, ok := decodeMessaging(msg)
			if !ok {
				continue
			}
			if err := w.engine.HandleEvent(ctx, msg.Sender.ID, ev); err != nil {
				logger.Error(ctx, component, "dispatch_failed",
					slog.String("user", msg.Sender.ID),
					slog.Any("error", err))
			}
		}
	}
	rw.WriteHeader(http.StatusOK)
}

func decodeMessaging(msg fbMessaging) (engine.Event, bool) {
	switch {
	case msg.Postback != nil:
		if msg.Postback.Payload == "start" || msg.Postback.Payload == "/start" {
			return engine.TextMessage{Body: "/start"}, true
		}
		payload, err := engine.DecodePayload(msg.Postback.Payload)
		if err != nil {
			return nil, false
		}
		return engine.Postback{Payload: payload}, true
	case msg.Message != nil:
		for _, att := range msg.Message.Attachments {
			if att.Type == "location" {
				return engine.LocationShared{
					Lon: att.Payload.Coordinates.Long,
					Lat: att.Payload.Coordinates.Lat,
				}, true
			}
		}
		if msg.Message.Text != "" {
			return engine.TextMessage{Body: msg.Message.Text}, true
		}
	}
	return nil, false
}
