package mail

import (
	"bytes"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

// VerificationSubject is the subject line of the account verification email.
const VerificationSubject = "Verify your Shoes Store account"

var verificationHTML = htmltemplate.Must(htmltemplate.New("verify.html").Parse(`
<div style="font-family: Arial, sans-serif; line-height: 1.6; max-width: 600px; margin: auto; padding: 20px; border: 1px solid #eaeaea; border-radius: 8px;">
  <h2 style="color: #333;">Welcome to Shoes Store, {{.Username}}!</h2>
  <p>Thank you for registering. Please click the button below to verify your email address:</p>
  <p style="text-align: center;">
    <a href="{{.URL}}" style="display: inline-block; padding: 12px 24px; background-color: #1d4ed8; color: white; border-radius: 5px; text-decoration: none;">
      Verify Email
    </a>
  </p>
  <p>If the button doesn't work, copy and paste this URL into your browser:</p>
  <p><a href="{{.URL}}">{{.URL}}</a></p>
  <hr />
  <p style="font-size: 12px; color: #666;">If you did not register, you can safely ignore this email.</p>
</div>
`))

var verificationText = texttemplate.Must(texttemplate.New("verify.txt").Parse(`
Welcome to Shoes Store, {{.Username}}!

Please verify your email address by clicking the link below:
{{.URL}}

If the link doesn't work, copy and paste it into your browser.

If you did not register, you can safely ignore this email.
`))

type verificationData struct {
	Username string
	URL      string
}

// VerificationURL is the frontend page that submits token to the API.
func VerificationURL(frontendBaseURL, token string) string {
	return strings.TrimRight(frontendBaseURL, "/") + "/auth/verify-account/" + token
}

// RenderVerification returns the HTML and plain text bodies.
func RenderVerification(username, url string) (html, text string, err error) {
	data := verificationData{Username: username, URL: url}
	var hb, tb bytes.Buffer
	if err := verificationHTML.Execute(&hb, data); err != nil {
		return "", "", err
	}
	if err := verificationText.Execute(&tb, data); err != nil {
		return "", "", err
	}
	return hb.String(), tb.String(), nil
}
