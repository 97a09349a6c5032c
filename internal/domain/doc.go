// Package domain models WeatherNFT weather events and the rules that price them.
//
// # Events
//
// A weather event is a collectible built from one synthetic weather sample.
// Each event carries a rarity tier which fixes two numbers for its whole life:
// the number of capture slots (how many collectors may claim it) and the credit
// price of one capture. Scarcer tiers have fewer slots and cost more:
//
//	tier       slots  price
//	common       20      5
//	uncommon     10     10
//	rare          5     20
//	epic          3     35
//	legendary     1     50
//
// The table is closed: any tier outside it is rejected with UnknownTierError.
// Price may later be raised by an admin boost; slot count never changes.
//
// # Capture accounting
//
// CapturedCount starts at 0 and never exceeds CaptureSlots. An event stops
// being active when its last slot is taken or when ExpiresAt has passed,
// whichever comes first. Deactivation is one-way.
//
// # Weather formulas
//
// Dew point uses the Magnus approximation (a = 17.27, b = 237.7 °C) and is
// undefined for non-positive relative humidity. Heat index uses the Rothfusz
// regression in Celsius form and is only applied at or above 27 °C; below that
// the air temperature is returned unchanged.
package domain
