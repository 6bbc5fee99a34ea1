// Package core defines the ports the report pipeline depends on.
package core
