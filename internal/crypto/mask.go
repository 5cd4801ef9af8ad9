package crypto

// PIIKind selects the masking rule for a value written to logs
type PIIKind string

const (
	PIIPhone   PIIKind = "phone"
	PIIAccount PIIKind = "account"
	PIIAddress PIIKind = "address" // blockchain wallet address
	PIIName    PIIKind = "name"
	PIISecret  PIIKind = "secret"
)

// MaskPII masks personally identifiable information for logging
func MaskPII(value string, kind PIIKind) string {
	if len(value) == 0 {
		return ""
	}

	switch kind {
	case PIIPhone:
		return maskPhone(value)
	case PIIAccount:
		return maskAccount(value)
	case PIIAddress:
		return maskAddress(value)
	case PIIName:
		return maskName(value)
	case PIISecret:
		return maskSecret(value)
	default:
		return "***MASKED***"
	}
}

func maskPhone(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return phone[:2] + "***" + phone[len(phone)-4:]
}

func maskAccount(account string) string {
	if len(account) < 4 {
		return "****"
	}
	return "****" + account[len(account)-4:]
}

func maskAddress(addr string) string {
	if len(addr) < 12 {
		return "****"
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}

func maskName(name string) string {
	if len(name) < 2 {
		return "***"
	}
	return string(name[0]) + "***"
}

func maskSecret(secret string) string {
	if len(secret) < 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
