package utm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCompose_AppendsInCanonicalOrder(t *testing.T) {
	got := Compose("https://example.com/sale", Params{Source: "newsletter", Medium: "email"})
	assert.Equal(t, "https://example.com/sale?utm_source=newsletter&utm_medium=email", got)
}

func TestCompose_AllFields(t *testing.T) {
	got := Compose("https://example.com", Params{
		Source: "print", Medium: "qr", Campaign: "spring", Term: "shoes", Content: "poster-a",
	})
	assert.Equal(t, "https://example.com?utm_source=print&utm_medium=qr&utm_campaign=spring&utm_term=shoes&utm_content=poster-a", got)
}

func TestCompose_OverwritesExistingUTMAndKeepsOthers(t *testing.T) {
	got := Compose("https://example.com/p?z=1&utm_source=old&a=2", Params{Source: "new"})
	assert.Equal(t, "https://example.com/p?z=1&utm_source=new&a=2", got)
}

func TestCompose_DropsDuplicateUTMKeys(t *testing.T) {
	got := Compose("https://example.com/?utm_medium=a&x=1&utm_medium=b", Params{Medium: "qr"})
	assert.Equal(t, "https://example.com/?utm_medium=qr&x=1", got)
}

func TestCompose_LeavesOtherEncodingUntouched(t *testing.T) {
	got := Compose("https://example.com/?q=a%20b&flag", Params{Campaign: "x"})
	assert.Equal(t, "https://example.com/?q=a%20b&flag&utm_campaign=x", got)
}

func TestCompose_EscapesValues(t *testing.T) {
	got := Compose("https://example.com/", Params{Campaign: "spring sale & more"})
	assert.Equal(t, "https://example.com/?utm_campaign=spring+sale+%26+more", got)
}

func TestCompose_KeepsFragment(t *testing.T) {
	got := Compose("https://example.com/page#top", Params{Source: "qr"})
	assert.Equal(t, "https://example.com/page?utm_source=qr#top", got)
}

func TestCompose_Idempotent(t *testing.T) {
	bases := []string{
		"https://example.com/sale",
		"https://example.com/p?z=1&utm_source=old",
		"http://example.com/a/b?x=1&x=2#frag",
		"https://example.com/?q=a%20b",
	}
	paramSets := []Params{
		{},
		{Source: "newsletter", Medium: "email"},
		{Campaign: "spring sale", Content: "a&b"},
		{Source: "s", Medium: "m", Campaign: "c", Term: "t", Content: "c2"},
	}
	for _, base := range bases {
		for _, p := range paramSets {
			once := Compose(base, p)
			assert.Equal(t, once, Compose(once, p), "base=%s params=%+v", base, p)
		}
	}
}

func TestCompose_EmptyParamsIsCanonicalForm(t *testing.T) {
	for _, u := range []string{
		"https://example.com/sale",
		"https://example.com/p?b=2&a=1",
		"HTTPS://example.com/x#y",
	} {
		assert.Equal(t, canonical(t, u), Compose(u, Params{}))
	}
}

func TestCompose_InvalidURLReturnedUnchanged(t *testing.T) {
	for _, raw := range []string{"not a url", "/relative/path", "example.com/page", "http://[::1"} {
		assert.Equal(t, raw, Compose(raw, Params{Source: "x"}))
	}
}

func TestValidate(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com/path?x=1", "HTTPS://Example.com"}
	invalid := []string{"", "example.com", "ftp://example.com", "javascript:alert(1)", "https://", "mailto:a@b.co", "/sale"}

	for _, v := range valid {
		assert.True(t, Validate(v), v)
		assert.NoError(t, ValidateDestination(v))
	}
	for _, v := range invalid {
		assert.False(t, Validate(v), v)
		assert.ErrorIs(t, ValidateDestination(v), ErrInvalidDestination)
	}
}

func TestParams_IsEmpty(t *testing.T) {
	assert.True(t, Params{}.IsEmpty())
	assert.False(t, Params{Term: "x"}.IsEmpty())
}
