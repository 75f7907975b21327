package notify

import (
	"fmt"
	"strings"

	"titan/internal/models"
)

// Message is one rendered notification.
type Message struct {
	Subject string
	Body    string
}

func serviceLabel(b models.Booking) string {
	if s := b.Field(models.FieldService); s != "" {
		return s
	}
	return "service request"
}

// OwnerMessage renders the alert sent to the business owner.
func OwnerMessage(b models.Booking) Message {
	var sb strings.Builder
	sb.WriteString("A new booking was submitted.\n\n")
	writeLine(&sb, "Booking ID", b.ID)
	writeLine(&sb, "Service", b.Field(models.FieldService))
	writeLine(&sb, "Customer", b.Field(models.FieldCustomerName))
	writeLine(&sb, "Phone", b.Field(models.FieldCustomerPhone))
	writeLine(&sb, "Email", b.Field(models.FieldCustomerEmail))
	writeLine(&sb, "Address", b.Field(models.FieldAddress))
	writeLine(&sb, "Total", b.Field(models.FieldTotal))
	writeLine(&sb, "Notes", b.Field(models.FieldNotes))
	writeLine(&sb, "Submitted", b.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"))

	return Message{
		Subject: fmt.Sprintf("New booking %s: %s", b.ID, serviceLabel(b)),
		Body:    sb.String(),
	}
}

// CustomerMessage renders the confirmation sent to the customer.
func CustomerMessage(b models.Booking) Message {
	name := b.Field(models.FieldCustomerName)
	if name == "" {
		name = "there"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Hi %s,\n\n", name)
	fmt.Fprintf(&sb, "Thank you for booking %s with us. We received your request and will contact you shortly to confirm the details.\n\n", serviceLabel(b))
	writeLine(&sb, "Booking reference", b.ID)
	writeLine(&sb, "Address", b.Field(models.FieldAddress))
	writeLine(&sb, "Total", b.Field(models.FieldTotal))
	sb.WriteString("\nTitan Booking\n")

	return Message{
		Subject: "We received your booking",
		Body:    sb.String(),
	}
}

func writeLine(sb *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(sb, "%s: %s\n", label, value)
}
