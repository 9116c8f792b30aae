package mailer

import (
	"fmt"
	"time"

	"gopkg.in/gomail.v2"
)

// displayZone is the fixed offset used only when formatting the expiry for
// the email body. Stored and compared timestamps stay in UTC.
var displayZone = time.FixedZone("UTC-3", -3*60*60)

type Mailer struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendRecoveryCode delivers the one-time code. The message carries a
// plain-text part and an HTML alternative.
func (m *Mailer) SendRecoveryCode(to, code string, expiresAt time.Time) error {
	localExpiry := expiresAt.In(displayZone).Format("15:04")

	msg := gomail.NewMessage()
	msg.SetHeader("To", to)
	msg.SetHeader("From", m.From)
	msg.SetHeader("Subject", "Password recovery")

	msg.SetBody("text/plain", textBody(code, localExpiry))
	msg.AddAlternative("text/html", htmlBody(code, localExpiry))

	dialer := gomail.NewDialer(m.Host, m.Port, m.Username, m.Password)
	return dialer.DialAndSend(msg)
}

func textBody(code, expiry string) string {
	return fmt.Sprintf(
		"Password recovery\n\nUse this code to reset your password: %s\nThe code is valid until %s.\n\nIf you did not request this, ignore this email.",
		code, expiry,
	)
}

func htmlBody(code, expiry string) string {
	return fmt.Sprintf(`
<html>
  <head>
    <style>
      body { font-family: Arial, sans-serif; background-color: #f2f2f2; padding: 20px; }
      .container { background-color: #ffffff; padding: 20px; border-radius: 8px; box-shadow: 0 2px 5px rgba(0,0,0,0.1); }
      .code { font-size: 24px; font-weight: bold; color: #333; }
    </style>
  </head>
  <body>
    <div class="container">
      <h1>Password recovery</h1>
      <p>Use the code below to reset your password:</p>
      <p class="code">%s</p>
      <p>The code is valid until %s.</p>
      <p>If you did not request this, ignore this email.</p>
    </div>
  </body>
</html>`, code, expiry)
}
