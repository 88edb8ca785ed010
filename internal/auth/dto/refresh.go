package dto

// RefreshInput carries the presented refresh token. Browsers send it via the
// HTTP-only cookie and leave the body empty; API clients may use the body.
type RefreshInput struct {
	RefreshToken string `json:"refresh_token"`
	Fingerprint  string `json:"-"`
	IPAddress    string `json:"-"`
	UserAgent    string `json:"-"`
}
