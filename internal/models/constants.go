package models

// Booking statuses. The set is open: any string a client sends is stored as-is,
// only StatusPending is ever assigned by the system.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// Request field names the service reads out of the opaque booking payload.
const (
	FieldService       = "service"
	FieldCustomerName  = "customerName"
	FieldCustomerPhone = "customerPhone"
	FieldCustomerEmail = "customerEmail"
	FieldAddress       = "address"
	FieldNotes         = "notes"
	FieldTotal         = "total"
)
