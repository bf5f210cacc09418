// Package naming builds the names of temp artifacts written next to the
// files being retimed.
package naming
