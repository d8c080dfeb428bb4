// Package export выгружает уведомления в CSV.
package export

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

// Header содержит строку заголовка CSV-выгрузки уведомлений.
const Header = "Date,Time,Type,Message,Order ID,Customer,Read"

// Filename возвращает имя файла выгрузки на дату day.
func Filename(day time.Time) string {
	return "orbit-notifications-" + day.UTC().Format(time.DateOnly) + ".csv"
}

// WriteNotifications пишет уведомления в w: по строке на уведомление, время в UTC.
// Поле Message всегда заключается в кавычки, внутренние кавычки удваиваются.
func WriteNotifications(w io.Writer, list []model.Notification) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(Header)
	bw.WriteString("\n")
	for _, n := range list {
		ts := n.CreatedAt.UTC()
		fields := []string{
			ts.Format(time.DateOnly),
			ts.Format(time.TimeOnly),
			field(string(n.Type)),
			quote(n.Message),
			field(n.OrderID),
			field(n.CustomerID),
			yesNo(n.Read),
		}
		bw.WriteString(strings.Join(fields, ","))
		bw.WriteString("\n")
	}
	return bw.Flush()
}

func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// field оставляет значение как есть, если оно не требует экранирования.
func field(s string) string {
	if strings.ContainsAny(s, ",\"\r\n") {
		return quote(s)
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
