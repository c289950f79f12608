package utm

import (
	"net/url"
	"testing"
)

func canonical(t *testing.T, raw string) string {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	return u.String()
}
