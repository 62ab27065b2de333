package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const receiptEmailTimeout = 5 * time.Second

// ReceiptDetails carries everything the receipt email needs. The booking
// engine fills it after a successful transaction; delivery failures are
// logged and never affect the booking.
type ReceiptDetails struct {
	Recipient       string
	CustomerName    string
	ReferenceNumber string
	Date            string
	AmountCents     int64
	Method          string
	Lines           []string
}

// SendReceipt delivers a booking receipt asynchronously, fire-and-forget.
func SendReceipt(sender Sender, details ReceiptDetails, logger *zerolog.Logger) {
	if sender == nil || details.Recipient == "" {
		return
	}

	subject := fmt.Sprintf("Booking confirmed - %s", details.ReferenceNumber)
	body := formatReceipt(details)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), receiptEmailTimeout)
		defer cancel()
		if err := sender.Send(ctx, details.Recipient, subject, body); err != nil && logger != nil {
			logger.Error().Err(err).Str("recipient", details.Recipient).Msg("Failed to send receipt email")
		}
	}()
}

func formatReceipt(details ReceiptDetails) string {
	var b strings.Builder
	name := details.CustomerName
	if name == "" {
		name = "there"
	}
	fmt.Fprintf(&b, "Hi %s,\n\n", name)
	fmt.Fprintf(&b, "Your booking on %s is confirmed.\n\n", details.Date)
	for _, line := range details.Lines {
		fmt.Fprintf(&b, "  %s\n", line)
	}
	fmt.Fprintf(&b, "\nReference: %s\n", details.ReferenceNumber)
	fmt.Fprintf(&b, "Paid: $%.2f (%s)\n", float64(details.AmountCents)/100, details.Method)
	return b.String()
}
