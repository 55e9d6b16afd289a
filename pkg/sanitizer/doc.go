// Package sanitizer provides input normalization functions for patient records.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// empty strings or empty slices rather than errors. Validation happens afterwards.
//
// Normalization includes:
//   - Names and free text: Collapse whitespace, trim leading/trailing spaces
//   - Documents (CPF, CEP): Keep ASCII digits only - "529.982.247-25" becomes "52998224725"
//   - Phone numbers: Convert to E.164 format, national numbers default to region BR
//   - Email: Trim and lowercase
//   - State: Upper-case two letter UF - " sp " becomes "SP"
//   - Attachments: Drop unnamed entries and duplicates by file name
//   - Comparison keys: Fold case and accents - "José" and "jose" compare equal
package sanitizer
