package models

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// FlexInt64 decodes an upstream numeric id that has historically been sent
// both as a JSON number and as a quoted string.
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	s := strings.Trim(string(data), `"`)
	if s == "" {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		// Some payloads carry decimal-formatted ids.
		fv, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return err
		}
		n = int64(fv)
	}
	*f = FlexInt64(n)
	return nil
}

func (f *FlexInt64) Int64() (int64, bool) {
	if f == nil {
		return 0, false
	}
	return int64(*f), true
}

// WebhookEvent is one inbound notification from the upstream platform.
// Fields are duplicated under Data in some delivery shapes; use the accessor
// methods, which apply the documented fallback order.
type WebhookEvent struct {
	ID              *FlexInt64        `json:"Id"`
	EventID         *FlexInt64        `json:"EventId"`
	EventName       string            `json:"EventName"`
	EventType       string            `json:"EventType"`
	EventDateTime   string            `json:"EventDateTime"`
	AccountID       *FlexInt64        `json:"AccountId"`
	BankAccountID   *FlexInt64        `json:"BankAccountId"`
	TransactionID   *FlexInt64        `json:"TransactionId"`
	TransactionType string            `json:"TransactionType"`
	EntityID        *FlexInt64        `json:"EntityId"`
	Data            *WebhookEventData `json:"Data"`
}

// WebhookEventData mirrors the event fields some senders nest under Data.
type WebhookEventData struct {
	AccountID       *FlexInt64 `json:"AccountId"`
	BankAccountID   *FlexInt64 `json:"BankAccountId"`
	TransactionID   *FlexInt64 `json:"TransactionId"`
	TransactionType string     `json:"TransactionType"`
	EntityID        *FlexInt64 `json:"EntityId"`
}

// WebhookPayload is the canonical multi-event envelope.
type WebhookPayload struct {
	Events []WebhookEvent `json:"Events"`
}

// EventKey returns the canonical upstream event identity used for the
// idempotency receipt.
func (e *WebhookEvent) EventKey() string {
	if id, ok := e.ID.Int64(); ok {
		return strconv.FormatInt(id, 10)
	}
	if id, ok := e.EventID.Int64(); ok {
		return strconv.FormatInt(id, 10)
	}
	return ""
}

// Name returns the event name, falling back to EventType.
func (e *WebhookEvent) Name() string {
	if e.EventName != "" {
		return e.EventName
	}
	return e.EventType
}

// ResolveBankAccountID applies the fallback order: top-level BankAccountId,
// then Data.BankAccountId, then EntityId.
func (e *WebhookEvent) ResolveBankAccountID() (int64, bool) {
	if id, ok := e.BankAccountID.Int64(); ok && id > 0 {
		return id, true
	}
	if e.Data != nil {
		if id, ok := e.Data.BankAccountID.Int64(); ok && id > 0 {
			return id, true
		}
	}
	if id, ok := e.EntityID.Int64(); ok && id > 0 {
		return id, true
	}
	return 0, false
}

// ResolveTransactionID applies the fallback order: top-level TransactionId,
// then Data.TransactionId.
func (e *WebhookEvent) ResolveTransactionID() (int64, bool) {
	if id, ok := e.TransactionID.Int64(); ok && id > 0 {
		return id, true
	}
	if e.Data != nil {
		if id, ok := e.Data.TransactionID.Int64(); ok && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// ResolveAccountID returns the upstream account (org) id, if present.
func (e *WebhookEvent) ResolveAccountID() (int64, bool) {
	if id, ok := e.AccountID.Int64(); ok && id > 0 {
		return id, true
	}
	if e.Data != nil {
		if id, ok := e.Data.AccountID.Int64(); ok && id > 0 {
			return id, true
		}
	}
	return 0, false
}

// ResolveTransactionType returns the lowercased transaction type, defaulting
// to "deposit" when the sender omitted it.
func (e *WebhookEvent) ResolveTransactionType() string {
	t := e.TransactionType
	if t == "" && e.Data != nil {
		t = e.Data.TransactionType
	}
	if t == "" {
		return "deposit"
	}
	return strings.ToLower(strings.TrimSpace(t))
}

// NormalizeWebhookPayload accepts the three delivery shapes the upstream has
// used (an Events array, a single Event object, or a bare event at the top
// level) and returns the canonical envelope. Returns nil when the body holds
// no recognizable event.
func NormalizeWebhookPayload(body []byte) (*WebhookPayload, error) {
	var envelope struct {
		Events []WebhookEvent `json:"Events"`
		Event  *WebhookEvent  `json:"Event"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, err
	}
	if len(envelope.Events) > 0 {
		return &WebhookPayload{Events: envelope.Events}, nil
	}
	if envelope.Event != nil {
		return &WebhookPayload{Events: []WebhookEvent{*envelope.Event}}, nil
	}

	var single WebhookEvent
	if err := json.Unmarshal(body, &single); err != nil {
		return nil, err
	}
	looksLikeEvent := single.EventName != "" || single.EventType != "" ||
		single.ID != nil || single.EventID != nil ||
		single.TransactionID != nil || single.EntityID != nil
	if !looksLikeEvent {
		return nil, nil
	}
	return &WebhookPayload{Events: []WebhookEvent{single}}, nil
}
