// Package secrets seals server CLI passwords before they are stored in the
// database and opens them again when a sync run needs to authenticate.
//
// Values are encrypted with NaCl secretbox (XSalsa20-Poly1305) under a single
// 32-byte key taken from configuration, and stored as
// base64(nonce || ciphertext). The key itself never touches the database.
package secrets
