package delivery

import (
	"errors"
	"testing"
	"time"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.DeliveryStatus
		want     bool
	}{
		{model.DeliveryQueued, model.DeliveryDelivered, true},
		{model.DeliveryQueued, model.DeliveryFailed, true},
		{model.DeliveryQueued, model.DeliveryQueued, false},
		{model.DeliveryDelivered, model.DeliveryFailed, false},
		{model.DeliveryDelivered, model.DeliveryQueued, false},
		{model.DeliveryFailed, model.DeliveryDelivered, false},
		{model.DeliveryFailed, model.DeliveryQueued, false},
		{"unknown", model.DeliveryDelivered, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"→"+string(tt.to), func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, ожидается %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(model.DeliveryQueued) {
		t.Error("queued не должен быть конечным")
	}
	if !IsTerminal(model.DeliveryDelivered) || !IsTerminal(model.DeliveryFailed) {
		t.Error("delivered и failed должны быть конечными")
	}
}

func TestFromOutcome(t *testing.T) {
	now := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)

	tr := FromOutcome(model.Succeeded("ext-1", "https://example.com/p/1"), now)
	if tr.To != model.DeliveryDelivered || tr.ExternalID != "ext-1" || tr.LastError != "" {
		t.Errorf("успешный результат: %+v", tr)
	}

	tr = FromOutcome(model.Failed(model.ErrKindNotConfigured, "нет site_url"), now)
	if tr.To != model.DeliveryFailed || tr.LastError != "not_configured: нет site_url" {
		t.Errorf("неуспешный результат: %+v", tr)
	}

	tr = FromOutcome(model.Outcome{OK: true}, now)
	if tr.To != model.DeliveryFailed || tr.LastError == "" {
		t.Errorf("успех без идентификатора должен стать failed: %+v", tr)
	}
}

func TestApply_Delivered(t *testing.T) {
	now := time.Now().UTC()
	d := &model.Delivery{Status: model.DeliveryQueued}

	err := Apply(d, Transition{To: model.DeliveryDelivered, ExternalID: "42", ExternalURL: "https://x/42", At: now})
	if err != nil {
		t.Fatalf("Apply() вернул ошибку: %v", err)
	}
	if d.Status != model.DeliveryDelivered {
		t.Errorf("Status = %s, ожидается delivered", d.Status)
	}
	if d.ExternalID == nil || *d.ExternalID != "42" {
		t.Errorf("ExternalID = %v, ожидается 42", d.ExternalID)
	}
	if d.DeliveredAt == nil || !d.DeliveredAt.Equal(now) {
		t.Errorf("DeliveredAt = %v, ожидается %v", d.DeliveredAt, now)
	}
	if d.LastError != nil {
		t.Errorf("LastError = %v, ожидается nil", *d.LastError)
	}
}

func TestApply_TerminalNotOverwritten(t *testing.T) {
	d := &model.Delivery{Status: model.DeliveryQueued}
	if err := Apply(d, Transition{To: model.DeliveryFailed, LastError: "publish_failed", At: time.Now()}); err != nil {
		t.Fatalf("Apply() вернул ошибку: %v", err)
	}

	err := Apply(d, Transition{To: model.DeliveryDelivered, ExternalID: "1", At: time.Now()})
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("ожидается TransitionError, получено %v", err)
	}
	if te.From != model.DeliveryFailed || te.To != model.DeliveryDelivered {
		t.Errorf("TransitionError = %+v", te)
	}
	if d.Status != model.DeliveryFailed || d.ExternalID != nil {
		t.Error("конечный статус не должен перезаписываться")
	}
}
