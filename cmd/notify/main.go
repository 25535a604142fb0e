package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/config"
	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	"github.com/opsdesk/shiftdesk/backend/internal/notify"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/wneessen/go-mail"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	/**********************************************
	 * 读取配置文件
	 **********************************************/
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 解析邮件模板
	 **********************************************/
	renderer, err := notify.NewRenderer(cfg.Email.TemplateDir)
	if err != nil {
		logger.Error("无法解析邮件模板", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 创建邮件客户端
	 **********************************************/
	client, err := mail.NewClient(cfg.Email.SMTP.Host,
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithSSL(),
		mail.WithPort(cfg.Email.SMTP.Port),
		mail.WithUsername(cfg.Email.SMTP.Username),
		mail.WithPassword(cfg.Email.SMTP.Password),
	)
	if err != nil {
		logger.Error("无法创建邮件客户端", slog.String("error", err.Error()))
		return
	}
	defer client.Close()

	// 验证邮件客户端是否连接成功
	clientDialCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Email.SMTP.DialTimeout)*time.Second)
	defer cancel()
	if err := client.DialWithContext(clientDialCtx); err != nil {
		logger.Error("无法连接到邮件服务器", slog.String("error", err.Error()))
		return
	}

	/**********************************************
	 * 连接 RabbitMQ
	 **********************************************/
	conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
	if err != nil {
		logger.Error("无法连接到 RabbitMQ", slog.String("error", err.Error()))
		return
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("无法创建通道", slog.String("error", err.Error()))
		return
	}
	defer ch.Close()

	// 与 api 声明的队列参数保持一致
	q, err := ch.QueueDeclare(
		cfg.RabbitMQ.Queue,
		true,  // 持久化
		false, // 不自动删除，没有消费者时消息仍然保留
		false, // 不独占
		false, // 等待 RabbitMQ 确认
		nil,
	)
	if err != nil {
		logger.Error("无法声明队列", slog.String("error", err.Error()))
		return
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	msgs, err := ch.Consume(
		q.Name,
		"",    // 由 RabbitMQ 分配消费者标识
		false, // 手动确认
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		logger.Error("无法消费消息", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					logger.Warn("消息通道已关闭")
					return
				}
				handleMessage(logger, cfg, client, renderer, msg)
			}
		}
	}()

	logger.Info("等待通知...（按 CTRL+C 退出）", "queue", q.Name)
	<-sigChan

	logger.Info("正在关闭 notify worker...")
	cancel()
	wg.Wait()
	logger.Info("notify worker 已成功关闭")
}

// handleMessage 无法解析或渲染的消息直接丢弃，发送失败的消息重新入队
func handleMessage(logger *slog.Logger, cfg *config.Config, client *mail.Client, renderer *notify.Renderer, msg amqp.Delivery) {
	n, err := domain.DecodeNotification(msg.Body)
	if err != nil {
		logger.Error("通知反序列化失败", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}
	logger.Info("收到通知", "type", n.Type, "to", n.To)

	subject, body, err := renderer.Render(n)
	if err != nil {
		logger.Error("无法渲染邮件", "type", n.Type, slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}

	m := mail.NewMsg()
	if err := m.From(cfg.Email.SMTP.Username); err != nil {
		logger.Error("无法设置邮件发件人", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}
	if err := m.To(n.To); err != nil {
		logger.Error("无法设置邮件收件人", slog.String("error", err.Error()))
		_ = msg.Nack(false, false)
		return
	}
	m.Subject(subject)
	m.SetBodyString(mail.TypeTextHTML, body)

	if err := client.DialAndSend(m); err != nil {
		logger.Error("邮件发送失败", slog.String("error", err.Error()))
		_ = msg.Nack(false, true)
		return
	}

	_ = msg.Ack(false)
}
