package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel 是 *amqp.Channel 中发布消息用到的部分
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher 把通知投递到消息队列。投递失败只记录日志，不影响已经完成的写操作。
type Publisher struct {
	ch      Channel
	queue   string
	timeout time.Duration
}

func NewPublisher(ch Channel, queue string, timeout time.Duration) *Publisher {
	return &Publisher{ch: ch, queue: queue, timeout: timeout}
}

func (p *Publisher) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return err
	}

	// 与请求的生命周期分离，请求结束后投递仍然可以完成
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		ctx,
		"",
		p.queue,
		true,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Publish 尽力投递，失败时只写日志
func (p *Publisher) Publish(ctx context.Context, n domain.Notification) {
	if n.To == "" {
		slog.Warn("通知缺少收件人，已跳过", slog.String("type", string(n.Type)))
		return
	}
	if err := p.Send(ctx, n); err != nil {
		slog.Error("通知投递失败", slog.String("type", string(n.Type)), slog.String("to", n.To), slog.String("error", err.Error()))
	}
}
