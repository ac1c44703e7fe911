// Package price provides a Normaliser for price quotes. Amounts arrive as
// minor units with a currency suffix ("1999 USD") and are stored as
// canonical decimal strings ("19.99").
package price
