package domain

// SubjectType differentiates customer vs agent tokens.
type SubjectType string

const (
	SubjectTypeCustomer SubjectType = "CUSTOMER"
	SubjectTypeAgent    SubjectType = "AGENT"
	SubjectTypeSystem   SubjectType = "SYSTEM"
)
