package domain

// OTP is a one-time numeric passcode delivered to a contact channel.
// PK: mobile_number, SK: otp_id (ULID, so rows sort by creation time and the
// most recent row for a contact is the first one in a descending query).
// Multiple unexpired rows may coexist for the same contact; issuing a new
// code does not invalidate earlier ones.
type OTP struct {
	MobileNumber string `json:"mobile_number" dynamodbav:"mobile_number"`
	OTPID        string `json:"otp_id" dynamodbav:"otp_id"`
	Role         Role   `json:"role" dynamodbav:"role"`
	Code         string `json:"-" dynamodbav:"otp_code"`
	IsUsed       bool   `json:"-" dynamodbav:"is_used"`
	CreatedAt    int64  `json:"-" dynamodbav:"created_at"`
	ExpiresAt    int64  `json:"-" dynamodbav:"expires_at"` // TTL (Unix seconds)
}
