package dispatch

import (
	"fmt"
	"strings"
	"time"

	"github.com/almutairi-dev/tawseel-backend/pkg/db/models"
)

const targetDateLayout = "2006-01-02"

// OrderLinks carries the capability links rendered into a message block.
type OrderLinks struct {
	View     string
	Complete string
}

// RenderMessage builds the outbound text for one driver. Each order renders
// as a fixed block so a human relaying the thread can match replies to
// orders by position.
func RenderMessage(driverName string, orders []models.Order, linksByOrder map[string]OrderLinks) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s, you have %d order(s) assigned:\n", driverName, len(orders))
	for _, order := range orders {
		links := linksByOrder[order.ID.String()]
		b.WriteString("\n")
		fmt.Fprintf(&b, "Order #%d\n", order.OrderNumber)
		fmt.Fprintf(&b, "Customer: %s\n", order.CustomerName)
		fmt.Fprintf(&b, "Phone: %s\n", order.CustomerPhone)
		fmt.Fprintf(&b, "Date: %s\n", formatTargetDate(order.TargetDate))
		fmt.Fprintf(&b, "Details: %s\n", links.View)
		fmt.Fprintf(&b, "Complete: %s\n", links.Complete)
	}
	return b.String()
}

func formatTargetDate(target *time.Time) string {
	if target == nil {
		return "not scheduled"
	}
	return target.Format(targetDateLayout)
}
