// Package kernel holds the small value objects shared by the shipment model:
// record keys (UUID), human-facing shipment identifiers and their code
// generators (ShipmentID), and unit systems with the weight and length
// conversions between them.
package kernel
