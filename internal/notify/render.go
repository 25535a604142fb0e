package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"path/filepath"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

type message struct {
	subject  string
	template string
}

var messages = map[domain.NotificationType]message{
	domain.NotifyShiftLink:          {subject: "排班系统 - 提交本周排班意向", template: "shift_link_email.html"},
	domain.NotifyRegistrationLink:   {subject: "排班系统 - 完成员工注册", template: "registration_link_email.html"},
	domain.NotifySubmissionReceived: {subject: "排班系统 - 已收到排班意向", template: "submission_received_email.html"},
	domain.NotifyShiftAssigned:      {subject: "排班系统 - 新的班次安排", template: "shift_assigned_email.html"},
}

// Renderer 在启动时解析所有模板，worker 按通知类型选择模板
type Renderer struct {
	templates map[domain.NotificationType]*template.Template
}

func NewRenderer(dir string) (*Renderer, error) {
	r := &Renderer{templates: make(map[domain.NotificationType]*template.Template, len(messages))}
	for typ, m := range messages {
		tmpl, err := template.ParseFiles(filepath.Join(dir, m.template))
		if err != nil {
			return nil, err
		}
		r.templates[typ] = tmpl
	}
	return r, nil
}

func (r *Renderer) Render(n *domain.Notification) (subject string, body string, err error) {
	tmpl, ok := r.templates[n.Type]
	if !ok {
		return "", "", fmt.Errorf("unsupported notification type %q", n.Type)
	}

	buf := bytes.Buffer{}
	if err := tmpl.Execute(&buf, n.Data); err != nil {
		return "", "", err
	}
	return messages[n.Type].subject, buf.String(), nil
}
