// Package shipment holds the Shipment aggregate and the value types it is
// built from.
//
// A shipment starts as a draft created from one of two editors (QuickShip or
// Advanced) and stays bound to that editor for life. Drafts may be saved any
// number of times without validation; each save recomputes the derived totals
// and bumps the draft version. Booking assigns the human-facing ShipmentID,
// freezes the content and opens the document steps (BOL and carrier
// confirmation), whose progress is tracked on the record.
//
// Status transitions:
//
//	Draft -> Booked
//	Draft -> Error -> Draft
package shipment
