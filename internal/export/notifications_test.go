package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/orbit-portal/internal/model"
)

func TestWriteNotifications_RoundTrip(t *testing.T) {
	list := []model.Notification{
		{
			Type:       model.NotificationTypeNewOrder,
			OrderID:    "o-1",
			CustomerID: "cust-42",
			Message:    `New order "Spring Restock" from cust-42`,
			Read:       false,
			CreatedAt:  time.Date(2025, 3, 4, 9, 5, 7, 0, time.UTC),
		},
		{
			Type:       model.NotificationTypeNewOrder,
			OrderID:    "o-2",
			CustomerID: "acme, inc",
			Message:    "line one\nline two, with comma",
			Read:       true,
			CreatedAt:  time.Date(2025, 3, 5, 23, 59, 59, 0, time.FixedZone("CET", 3600)),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteNotifications(&buf, list))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"Date", "Time", "Type", "Message", "Order ID", "Customer", "Read"}, records[0])
	assert.Equal(t, []string{"2025-03-04", "09:05:07", "new_order", `New order "Spring Restock" from cust-42`, "o-1", "cust-42", "No"}, records[1])
	assert.Equal(t, []string{"2025-03-05", "22:59:59", "new_order", "line one\nline two, with comma", "o-2", "acme, inc", "Yes"}, records[2])
}

func TestWriteNotifications_EscapesQuotes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteNotifications(&buf, []model.Notification{{
		Type:      model.NotificationTypeNewOrder,
		Message:   `say "hi"`,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}))

	assert.Equal(t, Header+"\n"+`2025-01-01,00:00:00,new_order,"say ""hi""",,,No`+"\n", buf.String())
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "orbit-notifications-2025-03-04.csv", Filename(time.Date(2025, 3, 4, 12, 0, 0, 0, time.UTC)))
}
