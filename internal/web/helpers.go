package web

import (
	"html/template"
	"net/url"
)

func templateFuncMap() template.FuncMap {
	return template.FuncMap{
		"truncate": truncate,
		"hostname": hostname,
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}

func hostname(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
