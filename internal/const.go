package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "campaid_access_token"
)
