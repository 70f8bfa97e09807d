package model

// Standard error codes for client-side failures
const (
	ErrCodeInvalidQuantity     = "INVALID_QUANTITY"
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeUnauthenticated     = "UNAUTHENTICATED"
	ErrCodeEmptyCart           = "EMPTY_CART"
	ErrCodeUnsupportedLanguage = "UNSUPPORTED_LANGUAGE"
	ErrCodeMissingProduct      = "MISSING_PRODUCT"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrInvalidQuantity     = NewDomainError(ErrCodeInvalidQuantity, "Quantity must be at least 1")
	ErrMissingProduct      = NewDomainError(ErrCodeMissingProduct, "Product ID is required")
	ErrInvalidShipping     = NewDomainError(ErrCodeMissingField, "Full name, phone, address and city are required")
	ErrUnauthenticated     = NewDomainError(ErrCodeUnauthenticated, "Unauthorized")
	ErrEmptyCart           = NewDomainError(ErrCodeEmptyCart, "Cart is empty")
	ErrUnsupportedLanguage = NewDomainError(ErrCodeUnsupportedLanguage, "Language must be en or fr")
)
