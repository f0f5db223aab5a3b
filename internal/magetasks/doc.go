// Package magetasks implements the targets behind the dbuild magefile.
package magetasks
