package model

// Airport is reference data loaded by migration; the gateway never writes
// to it.
type Airport struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IATACode string `json:"iata_code"`
}
