package service

import (
	"context"

	"ai-studytool-be/internal/pkg/logger"
	"ai-studytool-be/internal/websocket"
	"ai-studytool-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// EventForwarder ships events to other services. Implemented by the NATS publisher.
type EventForwarder interface {
	Publish(ctx context.Context, event events.Event) error
}

// RealtimeDelivery pushes updates to connected clients. Implemented by the websocket hub.
type RealtimeDelivery interface {
	Send(userID uuid.UUID, msgType string, data interface{})
	Broadcast(msgType string, data interface{})
}

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber message.Subscriber
	topicName  string
	forwarder  EventForwarder
	delivery   RealtimeDelivery
	logger     logger.ILogger
}

// NewConsumerService drains the in-process bus. forwarder and delivery may be nil.
func NewConsumerService(subscriber message.Subscriber, topicName string, forwarder EventForwarder, delivery RealtimeDelivery, log logger.ILogger) IConsumerService {
	return &consumerService{
		subscriber: subscriber,
		topicName:  topicName,
		forwarder:  forwarder,
		delivery:   delivery,
		logger:     log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

// processMessage always acks. Side effects are best effort and a nack would make the
// in-process bus redeliver immediately.
func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	defer msg.Ack()

	event, err := events.Unmarshal(msg.Payload)
	if err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal event", map[string]interface{}{"error": err.Error()})
		return
	}

	cs.pushRealtime(event)

	if cs.forwarder == nil {
		return
	}
	if err := cs.forwarder.Publish(ctx, event); err != nil {
		cs.logger.Warn("CONSUMER", "Failed to forward event", map[string]interface{}{
			"type": event.Type, "error": err.Error(),
		})
	}
}

func (cs *consumerService) pushRealtime(event events.BaseEvent) {
	if cs.delivery == nil {
		return
	}

	switch event.Type {
	case events.TypeCreditsSpent, events.TypeCreditsGranted:
		userId, err := uuid.Parse(event.String("user_id"))
		if err != nil {
			return
		}
		cs.delivery.Send(userId, websocket.MessageWalletUpdated, map[string]interface{}{
			"free_credits":  event.Int("free_credits"),
			"paid_credits":  event.Int("paid_credits"),
			"total_credits": event.Int("total_credits"),
			"used_today":    event.Int("used_today"),
			"daily_limit":   event.Int("daily_limit"),
		})
	case events.TypeToolConfigUpdated:
		cs.delivery.Broadcast(websocket.MessageToolConfig, event.Data)
	}
}
