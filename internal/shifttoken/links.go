package shifttoken

import (
	"net/url"
	"strings"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// Links 生成发给员工的公开链接
type Links struct {
	origin string
}

func NewLinks(origin string) Links {
	return Links{origin: strings.TrimRight(origin, "/")}
}

func (l Links) Registration(token string) string {
	q := url.Values{}
	q.Set("token", token)
	return l.origin + "/register-employee?" + q.Encode()
}

func (l Links) ShiftSubmission(token string, week *domain.Week) string {
	q := url.Values{}
	q.Set("token", token)
	if week != nil {
		q.Set("week_start", week.Start.Format(domain.DateLayout))
		q.Set("week_end", week.End.Format(domain.DateLayout))
	}
	return l.origin + "/shift-submission?" + q.Encode()
}

func (l Links) For(token *domain.ShiftToken) string {
	if token.Purpose == domain.TokenPurposeRegistration {
		return l.Registration(token.Value)
	}
	return l.ShiftSubmission(token.Value, token.Week())
}
