package dto

// LoginInput carries the credential pair plus request metadata the handler
// extracts from transport headers; metadata never comes from the JSON body.
type LoginInput struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	Fingerprint string `json:"-"`
	IPAddress   string `json:"-"`
	UserAgent   string `json:"-"`
}
