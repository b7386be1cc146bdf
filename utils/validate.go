package utils

import "regexp"

var (
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex   = regexp.MustCompile(`^[6-9]\d{9}$`)
	pincodeRegex = regexp.MustCompile(`^\d{6}$`)
)

// IsValidEmail checks that the address is RFC-shaped (local@domain.tld)
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// IsValidPhone checks for a 10-digit Indian mobile number starting 6-9
func IsValidPhone(phone string) bool {
	return phoneRegex.MatchString(phone)
}

// IsValidPincode checks for a 6-digit Indian postal code
func IsValidPincode(pincode string) bool {
	return pincodeRegex.MatchString(pincode)
}
