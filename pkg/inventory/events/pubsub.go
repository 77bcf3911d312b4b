// Package events publishes drum ledger events.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/nemonet1337/drumledger/pkg/inventory"
)

// AttrEventType is the message attribute carrying the event type
const AttrEventType = "event_type"

// PubSubPublisher publishes events as JSON messages to one Pub/Sub topic
// Pub/SubトピックへJSONメッセージとしてイベントを発行
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	logger *zap.Logger
}

var _ inventory.EventPublisher = (*PubSubPublisher)(nil)

// NewPubSubPublisher connects to projectID and uses topicID. credentialsJSON may be empty.
// Pub/Subに接続してトピックを使用
func NewPubSubPublisher(ctx context.Context, projectID, topicID, credentialsJSON string, logger *zap.Logger) (*PubSubPublisher, error) {
	if strings.TrimSpace(projectID) == "" || strings.TrimSpace(topicID) == "" {
		return nil, fmt.Errorf("Pub/SubのプロジェクトIDとトピックは必須です")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var opts []option.ClientOption
	if strings.TrimSpace(credentialsJSON) != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("Pub/Subクライアントの作成に失敗しました: %w", err)
	}

	return &PubSubPublisher{client: client, topic: client.Topic(topicID), logger: logger}, nil
}

// PublishLotReconciled implements inventory.EventPublisher
func (p *PubSubPublisher) PublishLotReconciled(ctx context.Context, event inventory.LotReconciledEvent) error {
	return p.publish(ctx, inventory.EventTypeLotReconciled, event)
}

// PublishDrumsMoved implements inventory.EventPublisher
func (p *PubSubPublisher) PublishDrumsMoved(ctx context.Context, event inventory.DrumsMovedEvent) error {
	return p.publish(ctx, inventory.EventTypeDrumsMoved, event)
}

// PublishRollback implements inventory.EventPublisher
func (p *PubSubPublisher) PublishRollback(ctx context.Context, event inventory.RollbackEvent) error {
	return p.publish(ctx, inventory.EventTypeRollback, event)
}

func (p *PubSubPublisher) publish(ctx context.Context, eventType string, event any) error {
	msg, err := newMessage(eventType, event)
	if err != nil {
		return err
	}

	id, err := p.topic.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return fmt.Errorf("イベント発行に失敗しました (%s): %w", eventType, err)
	}

	p.logger.Debug("イベント発行完了", zap.String("event_type", eventType), zap.String("message_id", id))
	return nil
}

// Close flushes pending messages and closes the client
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}

func newMessage(eventType string, event any) (*pubsub.Message, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("イベントのエンコードに失敗しました (%s): %w", eventType, err)
	}
	return &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{AttrEventType: eventType},
	}, nil
}
