package mail

import (
	"bytes"
	"embed"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
)

//go:embed templates/*
var templateFS embed.FS

var (
	htmlTemplates = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/*.html"))
	textTemplates = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/*.txt"))
)

func renderDecision(e DecisionEmail) (text, html string, err error) {
	name := "update.html"
	if e.Approved() {
		name = "approved.html"
	}
	var hb bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&hb, name, e); err != nil {
		return "", "", err
	}
	var tb bytes.Buffer
	if err := textTemplates.ExecuteTemplate(&tb, "decision.txt", e); err != nil {
		return "", "", err
	}
	return strings.TrimSpace(tb.String()), hb.String(), nil
}

func renderTest(stamp string) (string, error) {
	var b bytes.Buffer
	if err := htmlTemplates.ExecuteTemplate(&b, "test.html", stamp); err != nil {
		return "", err
	}
	return b.String(), nil
}
