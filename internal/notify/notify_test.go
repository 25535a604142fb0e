package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	key  string
	msgs []amqp.Publishing
	err  error
}

func (c *recordingChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("publish without deadline")
	}
	if c.err != nil {
		return c.err
	}
	c.key = key
	c.msgs = append(c.msgs, msg)
	return nil
}

func TestPublisherSendsDecodableMessage(t *testing.T) {
	ch := &recordingChannel{}
	p := NewPublisher(ch, "notification_queue", time.Second)

	p.Publish(context.Background(), domain.Notification{
		Type: domain.NotifySubmissionReceived,
		To:   "lisi@example.com",
		Data: domain.SubmissionReceivedData{FullName: "李四", WeekStart: "2024-03-03", WeekEnd: "2024-03-09", ShiftCount: 2},
	})

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "notification_queue", ch.key)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)

	n, err := domain.DecodeNotification(ch.msgs[0].Body)
	require.NoError(t, err)
	assert.Equal(t, domain.SubmissionReceivedData{FullName: "李四", WeekStart: "2024-03-03", WeekEnd: "2024-03-09", ShiftCount: 2}, n.Data)
}

func TestPublishIsBestEffort(t *testing.T) {
	ch := &recordingChannel{err: errors.New("channel closed")}
	p := NewPublisher(ch, "notification_queue", time.Second)

	assert.NotPanics(t, func() {
		p.Publish(context.Background(), domain.Notification{Type: domain.NotifyShiftLink, To: "a@example.com", Data: domain.ShiftLinkData{}})
	})
	assert.Error(t, p.Send(context.Background(), domain.Notification{Type: domain.NotifyShiftLink, To: "a@example.com"}))
}

func TestPublishSkipsMissingRecipient(t *testing.T) {
	ch := &recordingChannel{}
	NewPublisher(ch, "notification_queue", time.Second).Publish(context.Background(), domain.Notification{Type: domain.NotifyShiftLink})
	assert.Empty(t, ch.msgs)
}

func TestPublishSurvivesCancelledRequest(t *testing.T) {
	ch := &recordingChannel{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewPublisher(ch, "notification_queue", time.Second).Publish(ctx, domain.Notification{Type: domain.NotifyShiftLink, To: "a@example.com", Data: domain.ShiftLinkData{}})
	assert.Len(t, ch.msgs, 1)
}

func TestRenderer(t *testing.T) {
	r, err := NewRenderer("../../templates")
	require.NoError(t, err)

	subject, body, err := r.Render(&domain.Notification{
		Type: domain.NotifyShiftAssigned,
		To:   "wangwu@example.com",
		Data: domain.ShiftAssignedData{FullName: "王五", BranchName: "一号店", ShiftDate: "2024-03-05", StartTime: "14:00", EndTime: "18:00", ManagerOverride: true},
	})
	require.NoError(t, err)
	assert.Equal(t, "排班系统 - 新的班次安排", subject)
	assert.Contains(t, body, "王五")
	assert.Contains(t, body, "一号店")
	assert.Contains(t, body, "已由店长确认")

	subject, body, err = r.Render(&domain.Notification{
		Type: domain.NotifyShiftLink,
		Data: domain.ShiftLinkData{FullName: "李四", URL: "https://shift.example.com/shift-submission?token=abc&week_start=2024-03-03"},
	})
	require.NoError(t, err)
	assert.Equal(t, "排班系统 - 提交本周排班意向", subject)
	assert.Contains(t, body, "长期排班链接")
	assert.Contains(t, body, "token=abc&amp;week_start=2024-03-03")

	_, _, err = r.Render(&domain.Notification{Type: "unknown"})
	assert.Error(t, err)
}
