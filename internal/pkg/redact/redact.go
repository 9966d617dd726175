// Package redact маскирует идентифицирующие значения перед записью в лог.
package redact

import "unicode/utf8"

// DeviceID оставляет первые 4 символа идентификатора устройства.
// Идентификатор устройства = ключ псевдонима, целиком в лог не пишется.
func DeviceID(s string) string {
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) <= 4 {
		return "***"
	}

	r := []rune(s)
	return string(r[:4]) + "***"
}

func Token() string { return "[REDACTED_TOKEN]" }
