package domain

import "strings"

// Tenant описывает авторизованного жильца у провайдера домофонов.
type Tenant struct {
	TenantID    string
	Phone       string // только цифры
	IsSuperUser bool
}

// Device — домофон, доступный жильцу. Не кешируется.
type Device struct {
	ID       string
	Name     string
	TenantID string
}

// DigitsOnly оставляет в номере только цифры: "+7 (999) 123-45-67" -> "79991234567".
func DigitsOnly(phone string) string {
	var b strings.Builder
	b.Grow(len(phone))
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizeContactPhone приводит номер из контакта Telegram к формату 7XXXXXXXXXX.
// Российские номера вида 8XXXXXXXXXX переписываются на 7XXXXXXXXXX.
func NormalizeContactPhone(phone string) string {
	digits := DigitsOnly(phone)
	if len(digits) == 11 && digits[0] == '8' {
		return "7" + digits[1:]
	}
	return digits
}

// MaskPhone прячет середину номера для логов (79*******67).
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return phone[:2] + strings.Repeat("*", len(phone)-4) + phone[len(phone)-2:]
}
