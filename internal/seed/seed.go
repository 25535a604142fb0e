package seed

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/opsdesk/shiftdesk/backend/internal/domain"
)

// 员工名单 CSV 必须包含的列
const (
	HeaderFullName = "姓名"
	HeaderPhone    = "手机号"
	HeaderEmail    = "邮箱"
)

type EmployeeStore interface {
	CreateEmployee(ctx context.Context, employee *domain.Employee) error
}

type ImportResult struct {
	Created  []*domain.Employee
	Existing int
	Skipped  int
}

// ImportEmployees 从 CSV 名单导入员工，手机号已经登记过的员工跳过
func ImportEmployees(ctx context.Context, store EmployeeStore, businessID int64, r io.Reader) (*ImportResult, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	for i := range headers {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(headers[i], "\ufeff"))
	}
	for _, required := range []string{HeaderFullName, HeaderPhone, HeaderEmail} {
		if !slices.Contains(headers, required) {
			return nil, fmt.Errorf("没有找到 %s 列", required)
		}
	}

	result := &ImportResult{}
	for {
		row, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return result, fmt.Errorf("读取文件失败: %w", err)
		}

		record := make(map[string]string, len(headers))
		for i, value := range row {
			if i < len(headers) {
				record[headers[i]] = strings.TrimSpace(value)
			}
		}

		employee := &domain.Employee{
			BusinessID: businessID,
			FullName:   record[HeaderFullName],
			Phone:      record[HeaderPhone],
			Email:      record[HeaderEmail],
		}
		if employee.FullName == "" || employee.Phone == "" {
			slog.Warn("跳过不完整的记录", "record", record)
			result.Skipped++
			continue
		}

		if err := store.CreateEmployee(ctx, employee); err != nil {
			if errors.Is(err, domain.ErrEmployeeExists) {
				result.Existing++
				continue
			}
			return result, err
		}
		result.Created = append(result.Created, employee)
	}

	return result, nil
}
