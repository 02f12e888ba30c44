package domain

// Captcha is a short-lived typed-text challenge.
// PK: captcha_id. Text is stored uppercase; comparison is case-insensitive.
// ExpiresAt is a Unix timestamp also used as the DynamoDB TTL attribute.
type Captcha struct {
	CaptchaID string `json:"captcha_id" dynamodbav:"captcha_id"`
	Text      string `json:"-" dynamodbav:"captcha_text"`
	IsUsed    bool   `json:"-" dynamodbav:"is_used"`
	IPAddress string `json:"-" dynamodbav:"ip_address,omitempty"` // best-effort origin tag
	CreatedAt int64  `json:"-" dynamodbav:"created_at"`
	ExpiresAt int64  `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
