// Package services holds domain logic that does not belong to the Shipment
// aggregate itself.
//
// BookingValidator decides whether shipment content may be booked: addresses,
// packages and rate lines are checked against fixed business limits and the
// first problem found is reported with a message fit for the end user.
package services
