package models

// FinancingApplication is the form posted to /financing/apply.
// Applications are acknowledged but not stored.
type FinancingApplication struct {
	Name   string `form:"name"`
	Email  string `form:"email"`
	Income string `form:"income"`
}
