// Package enums holds the closed string sets persisted in outbox rows.
package enums

import (
	"fmt"
	"slices"
)

// OutboxAggregateType names the entity an outbox row is about.
type OutboxAggregateType string

const (
	AggregateUser    OutboxAggregateType = "user"
	AggregateProduct OutboxAggregateType = "product"
)

// OutboxEventType names the kind of work an outbox row requests.
type OutboxEventType string

const (
	EventWelcomeEmailRequested        OutboxEventType = "welcome_email_requested"
	EventAccountChangeNoticeRequested OutboxEventType = "account_change_notice_requested"
	EventProductContributed           OutboxEventType = "product_contributed"
)

var (
	aggregates = []OutboxAggregateType{AggregateUser, AggregateProduct}
	eventTypes = []OutboxEventType{
		EventWelcomeEmailRequested,
		EventAccountChangeNoticeRequested,
		EventProductContributed,
	}
)

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregates, a) }

func (e OutboxEventType) IsValid() bool { return slices.Contains(eventTypes, e) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse(aggregates, raw, "aggregate type")
}

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse(eventTypes, raw, "event type")
}

func parse[T ~string](known []T, raw, what string) (T, error) {
	if v := T(raw); slices.Contains(known, v) {
		return v, nil
	}
	return "", fmt.Errorf("unknown %s %q", what, raw)
}
