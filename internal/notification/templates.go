package notification

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"
)

const (
	subjectWelcome    = "Welcome to ShoeSteraj"
	subjectLoginAlert = "Security Alert: New Login to ShoeSteraj"
)

type welcomeData struct {
	Username    string
	FrontendURL string
	DeleteURL   string
	LinkHours   int
}

type loginAlertData struct {
	Username    string
	FrontendURL string
	When        string
}

var (
	welcomeText = template.Must(template.New("welcome.txt").Parse(`Hi {{.Username}},

Welcome to ShoeSteraj! Your account is ready. Start browsing or list your first pair at {{.FrontendURL}}

If you did not create this account, delete it immediately with this link (valid for {{.LinkHours}} hours):
{{.DeleteURL}}

The ShoeSteraj team
`))

	welcomeHTML = htmltemplate.Must(htmltemplate.New("welcome.html").Parse(`<p>Hi {{.Username}},</p>
<p>Welcome to <strong>ShoeSteraj</strong>! Your account is ready.
<a href="{{.FrontendURL}}">Start browsing or list your first pair</a>.</p>
<p>If you did not create this account, <a href="{{.DeleteURL}}">delete it immediately</a>.
The link is valid for {{.LinkHours}} hours.</p>
<p>The ShoeSteraj team</p>
`))

	loginAlertText = template.Must(template.New("login.txt").Parse(`Hi {{.Username}},

We noticed a new login to your ShoeSteraj account at {{.When}}.

If this was you, there is nothing to do. If not, secure your account right away: {{.FrontendURL}}

The ShoeSteraj team
`))

	loginAlertHTML = htmltemplate.Must(htmltemplate.New("login.html").Parse(`<p>Hi {{.Username}},</p>
<p>We noticed a new login to your ShoeSteraj account at {{.When}}.</p>
<p>If this was you, there is nothing to do. If not, <a href="{{.FrontendURL}}">secure your account right away</a>.</p>
<p>The ShoeSteraj team</p>
`))
)

func renderWelcome(to string, data welcomeData) (Message, error) {
	text, html, err := render(welcomeText, welcomeHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subjectWelcome, Text: text, HTML: html}, nil
}

func renderLoginAlert(to string, data loginAlertData) (Message, error) {
	text, html, err := render(loginAlertText, loginAlertHTML, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subjectLoginAlert, Text: text, HTML: html}, nil
}

func render(text *template.Template, html *htmltemplate.Template, data any) (string, string, error) {
	var textBuf, htmlBuf bytes.Buffer
	if err := text.Execute(&textBuf, data); err != nil {
		return "", "", err
	}
	if err := html.Execute(&htmlBuf, data); err != nil {
		return "", "", err
	}
	return textBuf.String(), htmlBuf.String(), nil
}
