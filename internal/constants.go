package internal

const (
	COOKIE_ACCESS_TOKEN_NAME = "pd_access_token"
)
