// Пакет delivery — конечный автомат статусов доставки.
//
// Жизненный цикл доставки: queued → delivered | failed.
// Конечные статусы (delivered, failed) не перезаписываются.
// В БД инвариант дополнительно закреплён условием status = 'queued'
// в UPDATE (см. repository.DeliveryRepository.ApplyTransition).
package delivery

import (
	"fmt"
	"time"

	"github.com/bigkaa/goartstore/publication-module/internal/domain/model"
)

// validTransitions — матрица допустимых переходов.
var validTransitions = map[model.DeliveryStatus]map[model.DeliveryStatus]bool{
	model.DeliveryQueued:    {model.DeliveryDelivered: true, model.DeliveryFailed: true},
	model.DeliveryDelivered: {},
	model.DeliveryFailed:    {},
}

// Transition — целевое состояние доставки вместе с сопутствующими полями.
type Transition struct {
	To model.DeliveryStatus
	// ExternalID, ExternalURL — только для delivered
	ExternalID  string
	ExternalURL string
	// LastError — только для failed, не пустой
	LastError string
	At        time.Time
}

// TransitionError — ошибка перехода между статусами.
type TransitionError struct {
	From model.DeliveryStatus
	To   model.DeliveryStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("INVALID_TRANSITION: переход %s → %s недопустим", e.From, e.To)
}

// CanTransition проверяет, допустим ли переход from → to.
func CanTransition(from, to model.DeliveryStatus) bool {
	return validTransitions[from][to]
}

// IsTerminal возвращает true для конечных статусов.
func IsTerminal(s model.DeliveryStatus) bool {
	targets, ok := validTransitions[s]
	return ok && len(targets) == 0
}

// FromOutcome строит переход по результату канала.
// Успешный результат без внешнего идентификатора считается неуспешным.
func FromOutcome(o model.Outcome, at time.Time) Transition {
	if o.OK && o.ExternalID != "" {
		return Transition{
			To:          model.DeliveryDelivered,
			ExternalID:  o.ExternalID,
			ExternalURL: o.ExternalURL,
			At:          at,
		}
	}

	lastError := o.LastError()
	if o.OK {
		lastError = model.Failed(model.ErrKindPublishFailed, "платформа не вернула идентификатор").LastError()
	}
	return Transition{
		To:        model.DeliveryFailed,
		LastError: lastError,
		At:        at,
	}
}

// Apply применяет переход к доставке в памяти.
// При недопустимом переходе доставка не изменяется.
func Apply(d *model.Delivery, t Transition) error {
	if !CanTransition(d.Status, t.To) {
		return &TransitionError{From: d.Status, To: t.To}
	}

	d.Status = t.To
	d.UpdatedAt = t.At
	switch t.To {
	case model.DeliveryDelivered:
		extID := t.ExternalID
		d.ExternalID = &extID
		if t.ExternalURL != "" {
			extURL := t.ExternalURL
			d.ExternalURL = &extURL
		}
		at := t.At
		d.DeliveredAt = &at
	case model.DeliveryFailed:
		lastErr := t.LastError
		d.LastError = &lastErr
	}
	return nil
}
