package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/orbitflow/orbitflow/engine/task/services"
	"github.com/orbitflow/orbitflow/engine/webhook/verify"
)

// Verifier checks an inbound request's signature against its raw body.
type Verifier = verify.Verifier

// VerifyConfig configures a Verifier instance.
type VerifyConfig = verify.Config

// Response is the HTTP-shaped outcome of processing one webhook delivery.
type Response struct {
	Status  int
	Payload any
}

// Orchestrator ties together registry lookup, signature verification,
// idempotency, CEL filtering, and template rendering into the single
// request/response cycle an HTTP handler drives.
type Orchestrator struct {
	reg              Lookup
	filter           *CELAdapter
	disp             services.SignalDispatcher
	idem             Service
	maxBodyBytes     int
	dedupeDefaultTTL time.Duration
	verifierFactory  func(VerifyConfig) (Verifier, error)
}

// NewOrchestrator builds an Orchestrator over its collaborators.
func NewOrchestrator(
	reg Lookup,
	filter *CELAdapter,
	disp services.SignalDispatcher,
	idem Service,
	maxBodyBytes int,
	dedupeDefaultTTL time.Duration,
) *Orchestrator {
	return &Orchestrator{
		reg:              reg,
		filter:           filter,
		disp:             disp,
		idem:             idem,
		maxBodyBytes:     maxBodyBytes,
		dedupeDefaultTTL: dedupeDefaultTTL,
		verifierFactory:  func(cfg VerifyConfig) (Verifier, error) { return verify.New(cfg) },
	}
}

// Process runs one inbound delivery for slug through to dispatch, or to
// whichever rejection (not-found, bad body, failed verification, duplicate,
// no matching event) applies first.
func (o *Orchestrator) Process(ctx context.Context, slug string, r *http.Request) (Response, error) {
	entry, ok := o.reg.Get(slug)
	if !ok {
		return Response{Status: http.StatusNotFound}, fmt.Errorf("webhook: slug %q not found", slug)
	}

	body, err := ReadRawJSON(r.Body, o.maxBodyBytes)
	if err != nil {
		return Response{Status: http.StatusBadRequest}, err
	}

	if entry.Webhook.Verify != nil {
		verifier, verr := o.verifierFactory(VerifyConfig{
			Strategy: entry.Webhook.Verify.Strategy,
			Secret:   entry.Webhook.Verify.Secret,
			Header:   entry.Webhook.Verify.Header,
		})
		if verr != nil {
			return Response{Status: http.StatusUnauthorized}, fmt.Errorf("webhook: verifier setup failed: %w", verr)
		}
		if verr := verifier.Verify(ctx, r, body); verr != nil {
			return Response{Status: http.StatusUnauthorized}, fmt.Errorf("webhook: signature verification failed: %w", verr)
		}
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Response{Status: http.StatusBadRequest}, fmt.Errorf("webhook: body is not a JSON object: %w", err)
	}

	if dd := entry.Webhook.Dedupe; dd != nil && dd.Enabled {
		if err := o.checkDuplicate(ctx, slug, dd, r.Header, body); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, ErrDuplicate) {
				status = http.StatusConflict
			}
			return Response{Status: status}, err
		}
	}

	return o.route(ctx, entry, payload, r)
}

func (o *Orchestrator) checkDuplicate(ctx context.Context, slug string, dd *DedupeSpec, h http.Header, body []byte) error {
	field := dd.Field
	if field == "" {
		field = "id"
	}
	key, err := DeriveKey(h, body, field)
	if err != nil {
		return fmt.Errorf("webhook: failed to derive idempotency key: %w", err)
	}
	ttl := o.dedupeDefaultTTL
	if dd.TTL != "" {
		if parsed, perr := time.ParseDuration(dd.TTL); perr == nil {
			ttl = parsed
		}
	}
	nsKey := fmt.Sprintf("idempotency:webhook:%s:%s", slug, key)
	return o.idem.CheckAndSet(ctx, nsKey, ttl)
}

func (o *Orchestrator) route(ctx context.Context, entry RegistryEntry, payload map[string]any, r *http.Request) (Response, error) {
	data := map[string]any{
		"payload": payload,
		"headers": headerMap(r.Header),
		"query":   queryMap(r.URL.Query()),
	}
	correlationID := r.Header.Get("X-Correlation-ID")

	for _, ev := range entry.Webhook.Events {
		allowed, err := o.filter.Allow(ctx, ev.Filter, data)
		if err != nil {
			return Response{Status: http.StatusBadRequest}, fmt.Errorf("webhook: filter evaluation failed: %w", err)
		}
		if !allowed {
			continue
		}
		signalPayload, err := RenderTemplate(ctx, RenderContext{Payload: payload}, ev.Input)
		if err != nil {
			return Response{Status: http.StatusBadRequest}, err
		}
		if err := o.disp.Dispatch(ctx, ev.Name, correlationID, signalPayload); err != nil {
			return Response{Status: http.StatusInternalServerError}, fmt.Errorf("webhook: signal dispatch failed: %w", err)
		}
		return Response{
			Status:  http.StatusAccepted,
			Payload: map[string]any{"status": "accepted", "event": ev.Name},
		}, nil
	}

	return Response{
		Status:  http.StatusNoContent,
		Payload: map[string]any{"status": "no_matching_event"},
	}, nil
}

func headerMap(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		if len(v) == 0 {
			continue
		}
		out[strings.ToLower(k)] = v[0]
	}
	return out
}

func queryMap(v url.Values) map[string]any {
	out := make(map[string]any, len(v))
	for k, vals := range v {
		if len(vals) == 0 {
			continue
		}
		out[k] = vals[0]
	}
	return out
}
