package utils

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var e164Regex = regexp.MustCompile(`^\+[1-9]\d{7,14}$`) // ITU-T E.164

// IsE164 reports basic E.164 compliance
func IsE164(number string) bool { return e164Regex.MatchString(number) }

// IsValidEmailSyntax does RFC-5322-ish syntax only (no DNS).
func IsValidEmailSyntax(e string) bool {
	_, err := mail.ParseAddress(e)
	return err == nil
}

// ValidateSenderAddress checks that the outbound from-address is well formed
// and sits on the verified sending domain. Mail sent from any other domain is
// dropped by the transport, so this is a startup failure, not a warning.
func ValidateSenderAddress(from, verifiedDomain string) error {
	if from == "" || verifiedDomain == "" {
		return fmt.Errorf("%w: sender email and verified sender domain are required", ErrConfiguration)
	}
	if !IsValidEmailSyntax(from) {
		return fmt.Errorf("%w: sender email %q is malformed", ErrConfiguration, from)
	}
	at := strings.LastIndex(from, "@")
	if !strings.EqualFold(from[at+1:], strings.TrimPrefix(verifiedDomain, "@")) {
		return fmt.Errorf("%w: sender email %q is not on verified domain %q", ErrConfiguration, from, verifiedDomain)
	}
	return nil
}
