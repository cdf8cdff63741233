package auctions

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/floroz/buynow/pkg/events"
)

// SettledEvent is the payload of auction.settled
type SettledEvent struct {
	AuctionID       uuid.UUID
	OwnerID         uuid.UUID
	PurchaserID     uuid.UUID
	PaymentSourceID uuid.UUID
	ItemID          uuid.UUID
	Price           int64
	SettledAt       time.Time
}

// Payloads are protobuf Structs. Timestamps are carried in their protobuf JSON form
// and amounts as decimal strings, since Struct numbers are doubles.
func newInitializedEvent(a *Auction) (*events.OutboxEvent, error) {
	fields := map[string]any{
		"auction_id": a.ID.String(),
		"owner_id":   a.OwnerID.String(),
		"item_id":    a.ItemID.String(),
		"start_at":   formatTimestamp(a.StartAt),
		"end_at":     formatTimestamp(a.EndAt),
		"price":      formatAmount(a.Price),
	}
	if v, ok := a.Reserve.Get(); ok {
		fields["reserve_price"] = formatAmount(v)
	}
	payload, err := marshalFields(EventTypeAuctionInitialized, fields)
	if err != nil {
		return nil, err
	}
	return newOutboxEvent(a.ID, EventTypeAuctionInitialized, payload, a.CreatedAt), nil
}

func newSettledEvent(e SettledEvent) (*events.OutboxEvent, error) {
	payload, err := EncodeSettledEvent(e)
	if err != nil {
		return nil, err
	}
	return newOutboxEvent(e.AuctionID, EventTypeAuctionSettled, payload, e.SettledAt), nil
}

// EncodeSettledEvent builds an auction.settled payload
func EncodeSettledEvent(e SettledEvent) ([]byte, error) {
	return marshalFields(EventTypeAuctionSettled, map[string]any{
		"auction_id":        e.AuctionID.String(),
		"owner_id":          e.OwnerID.String(),
		"purchaser_id":      e.PurchaserID.String(),
		"payment_source_id": e.PaymentSourceID.String(),
		"item_id":           e.ItemID.String(),
		"price":             formatAmount(e.Price),
		"settled_at":        formatTimestamp(e.SettledAt),
	})
}

func marshalFields(eventType string, fields map[string]any) ([]byte, error) {
	body, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s payload: %w", eventType, err)
	}
	payload, err := proto.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

func newOutboxEvent(aggregateID uuid.UUID, eventType string, payload []byte, at time.Time) *events.OutboxEvent {
	return &events.OutboxEvent{
		ID:          uuid.New(),
		AggregateID: aggregateID,
		EventType:   eventType,
		Payload:     payload,
		Status:      events.OutboxStatusPending,
		CreatedAt:   at,
	}
}

// DecodeSettledEvent parses an auction.settled payload
func DecodeSettledEvent(payload []byte) (*SettledEvent, error) {
	var body structpb.Struct
	if err := proto.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	f := body.GetFields()

	var (
		e   SettledEvent
		err error
	)
	ids := []struct {
		key string
		dst *uuid.UUID
	}{
		{"auction_id", &e.AuctionID},
		{"owner_id", &e.OwnerID},
		{"purchaser_id", &e.PurchaserID},
		{"payment_source_id", &e.PaymentSourceID},
		{"item_id", &e.ItemID},
	}
	for _, id := range ids {
		if *id.dst, err = uuid.Parse(f[id.key].GetStringValue()); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", id.key, err)
		}
	}

	if e.Price, err = parseAmount(f["price"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("invalid price: %w", err)
	}
	if e.SettledAt, err = parseTimestamp(f["settled_at"].GetStringValue()); err != nil {
		return nil, fmt.Errorf("invalid settled_at: %w", err)
	}
	return &e, nil
}

func formatTimestamp(t time.Time) string {
	return timestamppb.New(t).AsTime().Format(time.RFC3339Nano)
}

func parseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	if err := timestamppb.New(t).CheckValid(); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func formatAmount(v int64) string {
	return strconv.FormatInt(v, 10)
}

func parseAmount(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
