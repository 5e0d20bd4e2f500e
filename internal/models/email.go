package models

// Виды писем
const (
	EmailAccountVerification = "account_verification"
	EmailAccountActivated    = "account_activated"
)

// EmailMessage сообщение в очереди писем
type EmailMessage struct {
	ID       string `json:"id"`
	Kind     string `json:"kind"`
	To       string `json:"to"`
	Subject  string `json:"subject"`
	Username string `json:"username"`
	AppName  string `json:"app_name"`
	URL      string `json:"url"`
}
