// Package model holds the data exchanged between the routedoc extraction,
// normalization and rendering stages.
package model
