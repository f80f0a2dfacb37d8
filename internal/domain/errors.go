package domain

import "errors"

var (
	// ErrMissingIdentityColumn reports a reference or forecast table that
	// lacks its zone-identity (or period) columns. Fatal for the operation
	// that needed the table, never for the process.
	ErrMissingIdentityColumn = errors.New("zone identity column missing")

	// ErrEmptyFeatureSet reports that no usable attribute columns remained
	// after projecting the catalog onto the loaded reference table. Index
	// construction cannot proceed until the reference data is fixed.
	ErrEmptyFeatureSet = errors.New("no feature columns after projection")

	// ErrZoneNotFound reports a query for a zone key absent from the fitted
	// reference table.
	ErrZoneNotFound = errors.New("zone not found")
)
